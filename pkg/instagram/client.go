package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/logger"
	"instagramdl/pkg/normalizer"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// maxBodyPreview bounds the response text copied into parse error logs
const maxBodyPreview = 200

// Client is the HTTP transport shared by the fetch sessions and the media
// downloader.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a new Instagram HTTP client
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
			"Sec-Fetch-Dest":  "document",
			"Sec-Fetch-Mode":  "navigate",
			"Sec-Fetch-Site":  "none",
			"Sec-Fetch-User":  "?1",
		},
		logger: logger.OrDefault(log).WithField("component", "instagram"),
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// SetTransport replaces the HTTP round tripper, mostly for tests.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.httpClient.Transport = rt
}

// doRequest sends req with the client headers, then extra on top.
func (c *Client) doRequest(req *http.Request, extra map[string]string) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "network error")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// Get performs a GET request. The caller owns the response body.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	return c.doRequest(req, headers)
}

// PostForm performs a form-encoded POST. The caller owns the response body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doRequest(req, headers)
}

// GetJSON performs a GET request and decodes the JSON object it returns
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string) (map[string]any, error) {
	resp, err := c.Get(ctx, rawURL, headers)
	if err != nil {
		return nil, err
	}
	return c.decodeJSON(resp)
}

// PostFormJSON performs a form POST and decodes the JSON object it returns
func (c *Client) PostFormJSON(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (map[string]any, error) {
	resp, err := c.PostForm(ctx, rawURL, form, headers)
	if err != nil {
		return nil, err
	}
	return c.decodeJSON(resp)
}

func (c *Client) decodeJSON(resp *http.Response) (map[string]any, error) {
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	raw, err := normalizer.Decode(body)
	if err != nil {
		preview := string(body)
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          requestURL(resp),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, err
	}
	return raw, nil
}

// Download opens the media at rawURL. It returns the body, which the caller
// must close, and the content length (-1 when unknown).
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	resp, err := c.Get(ctx, rawURL, map[string]string{
		"Accept":         "*/*",
		"Sec-Fetch-Dest": "empty",
		"Sec-Fetch-Mode": "no-cors",
		"Sec-Fetch-Site": "cross-site",
	})
	if err != nil {
		return nil, 0, err
	}
	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// checkResponseStatus maps non-2xx responses onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	target := requestURL(resp)

	var errorType errs.ErrorType
	var message string
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		errorType, message = errs.ErrorTypeAuth, "authentication required"
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		errorType, message = errs.ErrorTypeNotFound, "resource not found"
	case resp.StatusCode == http.StatusTooManyRequests:
		errorType, message = errs.ErrorTypeRateLimit, "rate limit exceeded"
	case resp.StatusCode >= 500:
		errorType, message = errs.ErrorTypeServerError, "server error"
	default:
		errorType, message = errs.ErrorTypeUnknown, fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}

	c.logger.WarnWithFields(message, map[string]interface{}{
		"status": resp.StatusCode,
		"url":    target,
	})
	return &errs.Error{
		Type:    errorType,
		Message: message,
		URL:     target,
		Code:    resp.StatusCode,
	}
}

func requestURL(resp *http.Response) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return ""
}
