package normalizer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagramdl/pkg/errors"
	"instagramdl/pkg/models"
)

func loadFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	raw, err := Decode(data)
	require.NoError(t, err)
	return raw
}

func decode(t *testing.T, doc string) map[string]any {
	t.Helper()
	raw, err := Decode([]byte(doc))
	require.NoError(t, err)
	return raw
}

func TestGraphImageScenario(t *testing.T) {
	raw := decode(t, `{"__typename":"GraphImage","display_url":"http://x/a.jpg","shortcode":"abc","owner":{"username":"bob"},"taken_at_timestamp":"0","edge_media_preview_like":{"count":3}}`)

	post, err := Normalize(raw, ShapeUnknown)
	require.NoError(t, err)

	assert.Equal(t, models.KindImage, post.Kind)
	require.NotNil(t, post.Image)
	assert.Equal(t, "http://x/a.jpg", post.Image.URL)
	require.NotNil(t, post.LikeCount)
	assert.Equal(t, 3, *post.LikeCount)
	assert.Equal(t, "bob", post.Author.Username)
	assert.Equal(t, time.Unix(0, 0).UTC(), post.CreatedAt)
	assert.Nil(t, post.CommentCount)
	assert.Nil(t, post.Caption)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Shape
	}{
		{"public api discriminator", `{"__typename":"XDTGraphImage"}`, ShapePublicAPI},
		{"public api envelope", `{"data":{"xdt_shortcode_media":{"__typename":"XDTGraphVideo"}}}`, ShapePublicAPI},
		{"internal discriminator", `{"__typename":"GraphSidecar"}`, ShapeInternalQuery},
		{"internal envelope", `{"graphql":{"shortcode_media":{"__typename":"GraphVideo"}}}`, ShapeInternalQuery},
		{"owner without discriminator", `{"shortcode":"x","owner":{"username":"u"}}`, ShapeInternalQuery},
		{"user without discriminator", `{"shortcode":"x","user":{"username":"u"}}`, ShapePublicAPI},
		{"json-ld context", `{"@context":"https://schema.org","@type":"SocialMediaPosting"}`, ShapeStructuredData},
		{"json-ld without context", `{"author":{"alternateName":"u"}}`, ShapeStructuredData},
		{"nothing known", `{"hello":"world"}`, ShapeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(decode(t, tt.doc)))
		})
	}
}

func TestUnrecognizedSchema(t *testing.T) {
	_, err := Normalize(decode(t, `{"hello":"world"}`), ShapeUnknown)
	assert.True(t, errors.IsUnrecognizedSchema(err))

	_, err = Normalize(nil, ShapeUnknown)
	assert.True(t, errors.IsUnrecognizedSchema(err))

	_, err = Normalize(decode(t, `{"__typename":"GraphReel","shortcode":"a","owner":{"username":"u"},"taken_at_timestamp":1}`), ShapeUnknown)
	assert.True(t, errors.IsUnrecognizedSchema(err))
}

func TestStructuredDataKind(t *testing.T) {
	t.Run("video entry present", func(t *testing.T) {
		post, err := Normalize(loadFixture(t, "structured_video.json"), ShapeUnknown)
		require.NoError(t, err)

		assert.Equal(t, models.KindVideo, post.Kind)
		require.NotNil(t, post.Video)
		assert.Equal(t, "https://cdn.example/clip.mp4", post.Video.URL)
		assert.Equal(t, "https://cdn.example/clip_thumb.jpg", post.Video.ThumbnailURL)
		assert.Equal(t, []string{"https://cdn.example/cover.jpg"}, post.Video.ExtraURLs)
		require.NotNil(t, post.Video.ViewCount)
		assert.Equal(t, 5400, *post.Video.ViewCount)
		assert.Nil(t, post.Image)
		assert.Equal(t, 1080, post.Width)
	})

	t.Run("no video entries", func(t *testing.T) {
		raw := decode(t, `{
			"@context":"https://schema.org",
			"mainEntityOfPage":{"@id":"https://www.instagram.com/p/CxImg/"},
			"author":{"alternateName":"bob"},
			"dateCreated":"2024-01-02T03:04:05+0100",
			"image":[{"url":"https://cdn.example/a.jpg"},"https://cdn.example/b.jpg"],
			"video":[]
		}`)
		post, err := Normalize(raw, ShapeUnknown)
		require.NoError(t, err)

		assert.Equal(t, models.KindImage, post.Kind)
		require.NotNil(t, post.Image)
		assert.Equal(t, "https://cdn.example/a.jpg", post.Image.URL)
		assert.Equal(t, []string{"https://cdn.example/b.jpg"}, post.Image.ExtraURLs)
		assert.Empty(t, post.Image.AltURLs)
		assert.Equal(t, []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}, post.MediaURLs())
		assert.Nil(t, post.LikeCount)
	})

	t.Run("several videos and images", func(t *testing.T) {
		raw := decode(t, `{
			"@context":"https://schema.org",
			"mainEntityOfPage":{"@id":"https://www.instagram.com/p/CxMix/"},
			"author":{"alternateName":"bob"},
			"dateCreated":"2024-01-02T03:04:05+0100",
			"image":[{"url":"http://x/i1.jpg"},{"url":"http://x/v1_thumb.jpg"},{"url":"http://x/i2.jpg"}],
			"video":[
				{"contentUrl":"http://x/v1.mp4","thumbnailUrl":"http://x/v1_thumb.jpg"},
				{"contentUrl":"http://x/v2.mp4"}
			]
		}`)
		post, err := Normalize(raw, ShapeUnknown)
		require.NoError(t, err)

		assert.Equal(t, models.KindVideo, post.Kind)
		require.NotNil(t, post.Video)
		assert.Equal(t, "http://x/v1.mp4", post.Video.URL)
		assert.Equal(t, []string{"http://x/v2.mp4", "http://x/i1.jpg", "http://x/i2.jpg"}, post.Video.ExtraURLs)
		assert.Equal(t, []string{
			"http://x/v1.mp4",
			"http://x/v2.mp4",
			"http://x/i1.jpg",
			"http://x/i2.jpg",
		}, post.MediaURLs())
	})
}

func TestStructuredDataFields(t *testing.T) {
	post, err := Normalize(loadFixture(t, "structured_video.json"), ShapeStructuredData)
	require.NoError(t, err)

	assert.Equal(t, "CxVid123", post.Shortcode)
	assert.Equal(t, "https://www.instagram.com/p/CxVid123/", post.URL)
	assert.Equal(t, "alice", post.Author.Username)
	assert.Equal(t, "Alice A.", post.Author.FullName)
	assert.Equal(t, "https://cdn.example/alice.jpg", post.Author.AvatarURL)
	assert.Equal(t, "https://www.instagram.com/alice", post.Author.ProfileURL)
	assert.Equal(t, "sunset timelapse", post.CaptionText())
	assert.True(t, post.CreatedAt.Equal(time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)))
	require.NotNil(t, post.LikeCount)
	assert.Equal(t, 120, *post.LikeCount)
	require.NotNil(t, post.CommentCount)
	assert.Equal(t, 7, *post.CommentCount)
}

func TestStructuredDataInteractionSchemeInsensitive(t *testing.T) {
	raw := decode(t, `{
		"mainEntityOfPage":{"@id":"https://www.instagram.com/p/Cx1/"},
		"author":{"alternateName":"bob"},
		"dateCreated":"2024-01-02T03:04:05Z",
		"interactionStatistic":[
			{"interactionType":"https://schema.org/LikeAction","userInteractionCount":9},
			{"interactionType":{"@type":"CommentAction"},"userInteractionCount":2}
		],
		"image":["https://cdn.example/a.jpg"]
	}`)
	post, err := Normalize(raw, ShapeUnknown)
	require.NoError(t, err)
	require.NotNil(t, post.LikeCount)
	assert.Equal(t, 9, *post.LikeCount)
	require.NotNil(t, post.CommentCount)
	assert.Equal(t, 2, *post.CommentCount)
}

func TestSidecar(t *testing.T) {
	post, err := Normalize(loadFixture(t, "query_sidecar.json"), ShapeUnknown)
	require.NoError(t, err)

	assert.Equal(t, models.KindMulti, post.Kind)
	require.Len(t, post.Items, 3)
	assert.Nil(t, post.Image)
	assert.Nil(t, post.Video)

	assert.Equal(t, models.KindImage, post.Items[0].Kind)
	assert.Equal(t, []string{"https://cdn.example/1_640.jpg", "https://cdn.example/1_1080.jpg"}, post.Items[0].Image.AltURLs)
	assert.Equal(t, models.KindVideo, post.Items[1].Kind)
	assert.True(t, post.Items[1].Video.HasAudio)
	assert.Equal(t, 12500*time.Millisecond, post.Items[1].Video.Duration)
	assert.Equal(t, models.KindImage, post.Items[2].Kind)

	assert.Equal(t, []string{
		"https://cdn.example/1.jpg",
		"https://cdn.example/2.mp4",
		"https://cdn.example/3.jpg",
	}, post.MediaURLs())

	assert.Equal(t, "three of them", post.CaptionText())
	assert.Equal(t, 51, *post.LikeCount)
	assert.Equal(t, 4, *post.CommentCount)
	assert.Equal(t, "carol", post.Author.Username)
	assert.True(t, post.Author.IsVerified)
	assert.Equal(t, 1500, *post.Author.FollowerCount)
	assert.Equal(t, 88, *post.Author.PostCount)
}

func TestSidecarChildCountMatchesEdges(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		edges := make([]any, n)
		for i := range edges {
			edges[i] = map[string]any{"node": map[string]any{"__typename": "XDTGraphImage", "display_url": "u"}}
		}
		raw := map[string]any{
			"__typename":               "XDTGraphSidecar",
			"shortcode":                "s",
			"user":                     map[string]any{"username": "u"},
			"taken_at_timestamp":       1,
			"edge_sidecar_to_children": map[string]any{"edges": edges},
		}
		post, err := Normalize(raw, ShapeUnknown)
		require.NoError(t, err)
		assert.Len(t, post.Items, n)
	}
}

func TestSidecarNestedIsRejected(t *testing.T) {
	raw := decode(t, `{"__typename":"GraphSidecar","shortcode":"s","owner":{"username":"u"},"taken_at_timestamp":1,
		"edge_sidecar_to_children":{"edges":[{"node":{"__typename":"GraphSidecar"}}]}}`)
	_, err := Normalize(raw, ShapeUnknown)
	assert.True(t, errors.IsUnrecognizedSchema(err))
}

func TestPublicAPIVideo(t *testing.T) {
	post, err := Normalize(loadFixture(t, "api_video.json"), ShapeUnknown)
	require.NoError(t, err)

	assert.Equal(t, models.KindVideo, post.Kind)
	assert.Equal(t, "dave", post.Author.Username)
	assert.Equal(t, "https://www.instagram.com/dave/", post.Author.ProfileURL)
	require.NotNil(t, post.Video)
	assert.Equal(t, "https://cdn.example/api.mp4", post.Video.URL)
	assert.Equal(t, 20000, *post.Video.PlayCount)
	assert.Equal(t, 15000, *post.Video.ViewCount)
	assert.Equal(t, 12, *post.CommentCount)
	assert.Nil(t, post.Caption)
	assert.Equal(t, "https://www.instagram.com/p/CvApi999/", post.URL)
}

func TestDiscriminatorWinsOverMedia(t *testing.T) {
	// a video_url on an image-typed node does not make it a video
	raw := decode(t, `{"__typename":"GraphImage","shortcode":"a","owner":{"username":"u"},"taken_at_timestamp":5,
		"display_url":"http://x/a.jpg","video_url":"http://x/a.mp4","is_video":true}`)
	post, err := Normalize(raw, ShapeUnknown)
	require.NoError(t, err)
	assert.Equal(t, models.KindImage, post.Kind)
	assert.Nil(t, post.Video)
}

func TestRoundTripCommonFields(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		shape    Shape
		id       string
		kind     models.Kind
		username string
	}{
		{
			name: "structured data",
			raw: map[string]any{
				"mainEntityOfPage": map[string]any{"@id": "https://www.instagram.com/p/SD1/"},
				"author":           map[string]any{"alternateName": "sd_user"},
				"dateCreated":      "2023-05-06T07:08:09Z",
				"image":            []any{map[string]any{"url": "http://x/sd.jpg"}},
			},
			shape:    ShapeStructuredData,
			id:       "SD1",
			kind:     models.KindImage,
			username: "sd_user",
		},
		{
			name: "internal query",
			raw: map[string]any{
				"__typename":         "GraphVideo",
				"shortcode":          "IQ1",
				"owner":              map[string]any{"username": "iq_user"},
				"taken_at_timestamp": 1600000000,
				"video_url":          "http://x/iq.mp4",
			},
			shape:    ShapeInternalQuery,
			id:       "IQ1",
			kind:     models.KindVideo,
			username: "iq_user",
		},
		{
			name: "public api",
			raw: map[string]any{
				"__typename":         "XDTGraphImage",
				"shortcode":          "PA1",
				"user":               map[string]any{"username": "pa_user"},
				"taken_at_timestamp": 1600000000.0,
				"display_url":        "http://x/pa.jpg",
			},
			shape:    ShapePublicAPI,
			id:       "PA1",
			kind:     models.KindImage,
			username: "pa_user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, hint := range []Shape{ShapeUnknown, tt.shape} {
				post, err := Normalize(tt.raw, hint)
				require.NoError(t, err)
				assert.Equal(t, tt.id, post.Shortcode)
				assert.Equal(t, tt.kind, post.Kind)
				assert.Equal(t, tt.username, post.Author.Username)
			}
		})
	}
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"graph owner", `{"__typename":"GraphImage","shortcode":"a","taken_at_timestamp":1}`, "owner.username"},
		{"graph username", `{"__typename":"GraphImage","shortcode":"a","owner":{"id":"1"},"taken_at_timestamp":1}`, "owner.username"},
		{"api user", `{"__typename":"XDTGraphImage","shortcode":"a","taken_at_timestamp":1}`, "user.username"},
		{"graph timestamp", `{"__typename":"GraphImage","shortcode":"a","owner":{"username":"u"}}`, "taken_at_timestamp"},
		{"graph identity", `{"__typename":"GraphImage","owner":{"username":"u"},"taken_at_timestamp":1}`, "shortcode"},
		{"graph discriminator", `{"shortcode":"a","owner":{"username":"u"},"taken_at_timestamp":1}`, "__typename"},
		{"sidecar children", `{"__typename":"GraphSidecar","shortcode":"a","owner":{"username":"u"},"taken_at_timestamp":1}`, "edge_sidecar_to_children"},
		{"ld author", `{"@context":"https://schema.org","mainEntityOfPage":{"@id":"https://www.instagram.com/p/a/"},"dateCreated":"2024-01-02T03:04:05Z","image":["u"]}`, "author"},
		{"ld username", `{"author":{"name":"No Handle"},"mainEntityOfPage":{"@id":"https://www.instagram.com/p/a/"},"dateCreated":"2024-01-02T03:04:05Z","image":["u"]}`, "author.alternateName"},
		{"ld date", `{"author":{"alternateName":"u"},"mainEntityOfPage":{"@id":"https://www.instagram.com/p/a/"},"image":["u"]}`, "dateCreated"},
		{"ld identity", `{"author":{"alternateName":"u"},"dateCreated":"2024-01-02T03:04:05Z","image":["u"]}`, "mainEntityOfPage.@id"},
		{"ld media", `{"author":{"alternateName":"u"},"mainEntityOfPage":{"@id":"https://www.instagram.com/p/a/"},"dateCreated":"2024-01-02T03:04:05Z"}`, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(decode(t, tt.doc), ShapeUnknown)
			require.Error(t, err)
			assert.True(t, errors.IsMissingField(err), "got %v", err)

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestNormalizePayloadFillsURL(t *testing.T) {
	raw := decode(t, `{"__typename":"GraphImage","id":"77","owner":{"username":"u"},"taken_at_timestamp":1,"display_url":"http://x/a.jpg"}`)
	post, err := NormalizePayload(&Payload{Shape: ShapeInternalQuery, Data: raw, SourceURL: "https://www.instagram.com/p/zz/"})
	require.NoError(t, err)
	assert.Equal(t, "https://www.instagram.com/p/zz/", post.URL)
	assert.Equal(t, "77", post.ID)
}

func TestShortcodeFromURL(t *testing.T) {
	tests := map[string]string{
		"https://www.instagram.com/p/Cabc123/":                "Cabc123",
		"https://www.instagram.com/p/Cabc123":                 "Cabc123",
		"https://www.instagram.com/reel/Rxyz/?igsh=abc":       "Rxyz",
		"https://www.instagram.com/alice/p/Cabc123/":          "Cabc123",
		"https://www.instagram.com/tv/Tv1/":                   "Tv1",
		"https://example.com/anything/last":                   "last",
		"":                                                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShortcodeFromURL(in), in)
	}
}

func TestDecode(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`[1, 2]`))
	assert.True(t, errors.IsUnrecognizedSchema(err))

	raw, err := Decode([]byte(`[{"a":1},{"b":2}]`))
	require.NoError(t, err)
	assert.Contains(t, raw, "a")
}
