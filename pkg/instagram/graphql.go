package instagram

import (
	"context"

	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/normalizer"
)

// APISession fetches posts through the public GraphQL API.
type APISession struct {
	client    *Client
	docID     string
	userAgent string
}

// NewAPISession creates an API session. An empty userAgent means a random
// one per request.
func NewAPISession(client *Client, docID, userAgent string) *APISession {
	if docID == "" {
		docID = DefaultDocID
	}
	return &APISession{client: client, docID: docID, userAgent: userAgent}
}

// Fetch posts the shortcode query and returns the xdt_shortcode_media payload.
func (s *APISession) Fetch(ctx context.Context, postURL string) (*normalizer.Payload, error) {
	shortcode, err := requireShortcode(postURL)
	if err != nil {
		return nil, err
	}

	ua := s.userAgent
	if ua == "" {
		ua = RandomString(10)
	}
	headers := map[string]string{
		"User-Agent":     ua,
		"Accept":         "*/*",
		"Referer":        postURL,
		"Origin":         BaseURL,
		"Sec-Fetch-Dest": "empty",
		"Sec-Fetch-Mode": "cors",
		"Sec-Fetch-Site": "same-origin",
	}

	raw, err := s.client.PostFormJSON(ctx, GraphQLEndpoint, GraphQLForm(shortcode, s.docID), headers)
	if err != nil {
		return nil, asUnavailable(err, postURL)
	}
	return mediaPayload(raw, "xdt_shortcode_media", normalizer.ShapePublicAPI, postURL)
}

// QuerySession fetches posts through the internal persisted query.
type QuerySession struct {
	client    *Client
	queryHash string
}

// NewQuerySession creates a query session
func NewQuerySession(client *Client, queryHash string) *QuerySession {
	if queryHash == "" {
		queryHash = DefaultQueryHash
	}
	return &QuerySession{client: client, queryHash: queryHash}
}

// Fetch runs the shortcode query and returns the shortcode_media payload.
func (s *QuerySession) Fetch(ctx context.Context, postURL string) (*normalizer.Payload, error) {
	shortcode, err := requireShortcode(postURL)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GetJSON(ctx, GetQueryURL(shortcode, s.queryHash), map[string]string{
		"Accept":           "*/*",
		"Referer":          postURL,
		"X-Requested-With": "XMLHttpRequest",
		"Sec-Fetch-Dest":   "empty",
		"Sec-Fetch-Mode":   "cors",
		"Sec-Fetch-Site":   "same-origin",
	})
	if err != nil {
		return nil, asUnavailable(err, postURL)
	}
	return mediaPayload(raw, "shortcode_media", normalizer.ShapeInternalQuery, postURL)
}

// mediaPayload picks data.<key> out of a GraphQL response. A null media
// object is how the API answers for removed and private posts.
func mediaPayload(raw map[string]any, key string, shape normalizer.Shape, postURL string) (*normalizer.Payload, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		if msg, _ := raw["message"].(string); msg != "" {
			if msg == "login_required" || raw["require_login"] == true {
				return nil, &errs.Error{Type: errs.ErrorTypeAuth, Message: msg, URL: postURL}
			}
			return nil, &errs.Error{Type: errs.ErrorTypeServerError, Message: msg, URL: postURL}
		}
		return nil, errs.WithURL(errs.UnrecognizedSchema("response carries no data object"), postURL)
	}

	media, ok := data[key].(map[string]any)
	if !ok {
		return nil, errs.Unavailable(postURL)
	}
	return &normalizer.Payload{Shape: shape, Data: media, SourceURL: postURL}, nil
}
