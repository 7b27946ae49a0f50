package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagramdl/pkg/config"
	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/logger"
	"instagramdl/pkg/models"
	"instagramdl/pkg/normalizer"
)

const testPostURL = "https://www.instagram.com/p/CvApi999/"

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../normalizer/testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestAPISessionFetch(t *testing.T) {
	body := fixture(t, "api_video.json")

	var req *http.Request
	client := newMockClient(logger.NewTestLogger(), func(r *http.Request) (*http.Response, error) {
		req = r
		assert.NoError(t, r.ParseForm())
		return newResponse(http.StatusOK, body), nil
	})

	payload, err := NewAPISession(client, "", "").Fetch(context.Background(), testPostURL)
	require.NoError(t, err)

	assert.Equal(t, GraphQLEndpoint, req.URL.String())
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, testPostURL, req.Header.Get("Referer"))
	assert.Equal(t, BaseURL, req.Header.Get("Origin"))
	assert.Len(t, req.Header.Get("User-Agent"), 10)
	assert.Equal(t, `{"shortcode":"CvApi999"}`, req.PostForm.Get("variables"))
	assert.Equal(t, DefaultDocID, req.PostForm.Get("doc_id"))

	assert.Equal(t, normalizer.ShapePublicAPI, payload.Shape)
	assert.Equal(t, testPostURL, payload.SourceURL)
	assert.Equal(t, "XDTGraphVideo", payload.Data["__typename"])

	post, err := normalizer.NormalizePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, models.KindVideo, post.Kind)
	assert.Equal(t, "dave", post.Author.Username)
}

func TestAPISessionConfiguredUserAgent(t *testing.T) {
	var ua string
	client := newMockClient(logger.NewTestLogger(), func(r *http.Request) (*http.Response, error) {
		ua = r.Header.Get("User-Agent")
		return newResponse(http.StatusOK, `{"data":{"xdt_shortcode_media":{"__typename":"XDTGraphImage"}}}`), nil
	})

	_, err := NewAPISession(client, "", "my-agent/1.0").Fetch(context.Background(), testPostURL)
	require.NoError(t, err)
	assert.Equal(t, "my-agent/1.0", ua)
}

func TestAPISessionUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"null media", http.StatusOK, `{"data":{"xdt_shortcode_media":null},"status":"ok"}`},
		{"missing media", http.StatusOK, `{"data":{},"status":"ok"}`},
		{"not found", http.StatusNotFound, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient(logger.NewTestLogger(), func(r *http.Request) (*http.Response, error) {
				return newResponse(tt.status, tt.body), nil
			})

			_, err := NewAPISession(client, "", "").Fetch(context.Background(), testPostURL)
			require.Error(t, err)
			assert.True(t, errs.IsUnavailable(err))
			assert.Equal(t, testPostURL, errs.URLOf(err))
		})
	}
}

func TestAPISessionTransportErrorsAreNotUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errs.ErrorType
	}{
		{"rate limited", http.StatusTooManyRequests, "", errs.ErrorTypeRateLimit},
		{"server error", http.StatusInternalServerError, "", errs.ErrorTypeServerError},
		{"login wall", http.StatusOK, `{"message":"login_required","require_login":true,"status":"fail"}`, errs.ErrorTypeAuth},
		{"failure message", http.StatusOK, `{"message":"Please wait a few minutes","status":"fail"}`, errs.ErrorTypeServerError},
		{"no data", http.StatusOK, `{"status":"ok"}`, errs.ErrorTypeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient(logger.NewTestLogger(), func(r *http.Request) (*http.Response, error) {
				return newResponse(tt.status, tt.body), nil
			})

			_, err := NewAPISession(client, "", "").Fetch(context.Background(), testPostURL)
			require.Error(t, err)
			assert.False(t, errs.IsUnavailable(err))
			assert.Equal(t, tt.wantType, errs.TypeOf(err))
		})
	}
}

func TestSessionRejectsURLWithoutShortcode(t *testing.T) {
	client := newMockClient(logger.NewTestLogger(), func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	_, err := NewAPISession(client, "", "").Fetch(context.Background(), "https://www.instagram.com/")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestQuerySessionFetch(t *testing.T) {
	body := fixture(t, "query_sidecar.json")

	var req *http.Request
	client := newMockClient(logger.NewTestLogger(), func(r *http.Request) (*http.Response, error) {
		req = r
		return newResponse(http.StatusOK, body), nil
	})

	postURL := "https://www.instagram.com/p/CsSide01/"
	payload, err := NewQuerySession(client, "").Fetch(context.Background(), postURL)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/graphql/query/", req.URL.Path)
	assert.Equal(t, DefaultQueryHash, req.URL.Query().Get("query_hash"))
	assert.Equal(t, `{"shortcode":"CsSide01"}`, req.URL.Query().Get("variables"))

	assert.Equal(t, normalizer.ShapeInternalQuery, payload.Shape)
	post, err := normalizer.NormalizePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, models.KindMulti, post.Kind)
	assert.Equal(t, "carol", post.Author.Username)
}

func TestQuerySessionUnavailable(t *testing.T) {
	client := newMockClient(logger.NewTestLogger(), func(r *http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, `{"data":{"shortcode_media":null},"status":"ok"}`), nil
	})

	_, err := NewQuerySession(client, "").Fetch(context.Background(), testPostURL)
	assert.True(t, errs.IsUnavailable(err))
}

func postPage(ldJSON string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Instagram</title>
<script type="application/ld+json">%s</script>
</head><body><main>post</main></body></html>`, ldJSON)
}

func TestPageSessionFetch(t *testing.T) {
	page := postPage(fixture(t, "structured_video.json"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/p/CxVid123/":
			_, _ = w.Write([]byte(page))
		case "/p/Gone/":
			_, _ = w.Write([]byte(`<html><body><h2>Sorry, this page isn't available.</h2></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	session := NewPageSession(NewClient(5*time.Second, logger.NewTestLogger()))

	t.Run("structured data", func(t *testing.T) {
		payload, err := session.Fetch(context.Background(), server.URL+"/p/CxVid123/")
		require.NoError(t, err)
		assert.Equal(t, normalizer.ShapeStructuredData, payload.Shape)

		post, err := normalizer.NormalizePayload(payload)
		require.NoError(t, err)
		assert.Equal(t, models.KindVideo, post.Kind)
		assert.Equal(t, "alice", post.Author.Username)
	})

	t.Run("unavailable text", func(t *testing.T) {
		_, err := session.Fetch(context.Background(), server.URL+"/p/Gone/")
		assert.True(t, errs.IsUnavailable(err))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := session.Fetch(context.Background(), server.URL+"/p/Missing/")
		assert.True(t, errs.IsUnavailable(err))
		assert.Equal(t, server.URL+"/p/Missing/", errs.URLOf(err))
	})
}

func TestExtractStructuredData(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		wantType string
		wantErr  errs.ErrorType
	}{
		{
			name:     "single object",
			html:     postPage(`{"@context":"https://schema.org","@type":"SocialMediaPosting"}`),
			wantType: "SocialMediaPosting",
		},
		{
			name:     "list takes first element",
			html:     postPage(`[{"@type":"VideoObject"},{"@type":"ImageObject"}]`),
			wantType: "VideoObject",
		},
		{
			name: "skips empty and broken blocks",
			html: `<html><head>
<script type="application/ld+json">   </script>
<script type="application/ld+json">{broken</script>
<script type="application/ld+json">{"@type":"ImageObject"}</script>
</head></html>`,
			wantType: "ImageObject",
		},
		{
			name:    "no blocks",
			html:    `<html><head><script>var x = 1;</script></head></html>`,
			wantErr: errs.ErrorTypeSchema,
		},
		{
			name:    "only broken block",
			html:    postPage(`{broken`),
			wantErr: errs.ErrorTypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ExtractStructuredData(strings.NewReader(tt.html))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, errs.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, data["@type"])
		})
	}
}

func TestNewSession(t *testing.T) {
	tests := []struct {
		session string
		want    Session
	}{
		{config.SessionAPI, &APISession{}},
		{config.SessionQuery, &QuerySession{}},
		{config.SessionPage, &PageSession{}},
		{config.SessionBrowser, &BrowserSession{}},
	}

	for _, tt := range tests {
		t.Run(tt.session, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Instagram.Session = tt.session

			s, err := NewSession(cfg, NewClient(time.Second, nil), logger.NewTestLogger())
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Instagram.Session = "fax"
		_, err := NewSession(cfg, NewClient(time.Second, nil), nil)
		assert.Error(t, err)
	})

	t.Run("user agent applied to client", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Instagram.UserAgent = "agent/2"
		client := NewClient(time.Second, nil)

		_, err := NewSession(cfg, client, nil)
		require.NoError(t, err)
		assert.Equal(t, "agent/2", client.headers["User-Agent"])
	})
}

func TestNewBrowserSessionDefaults(t *testing.T) {
	s := NewBrowserSession(config.BrowserConfig{Headless: true}, "", nil)

	assert.Equal(t, defaultPageTimeout, s.timeout)
	assert.Equal(t, DefaultUserAgent, s.userAgent)
	assert.True(t, s.headless)
	assert.Len(t, s.allocatorOptions(), len(chromedp.DefaultExecAllocatorOptions)+5)

	withExec := NewBrowserSession(config.BrowserConfig{ExecPath: "/usr/bin/chromium", Timeout: time.Second}, "ua", nil)
	assert.Equal(t, time.Second, withExec.timeout)
	assert.Len(t, withExec.allocatorOptions(), len(chromedp.DefaultExecAllocatorOptions)+6)
}
