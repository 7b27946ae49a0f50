// Package normalizer maps the upstream post payloads onto models.Post.
//
// Three shapes are understood: JSON-LD structured data embedded in the post
// page, the internal GraphQL query payload (Graph* discriminators, author
// under "owner") and the public GraphQL API payload (XDTGraph*
// discriminators, author under "user"). Each shape has its own pure
// extractor; Normalize is the single dispatch point.
package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"instagramdl/pkg/errors"
	"instagramdl/pkg/models"
)

// Shape names an upstream payload dialect.
type Shape string

const (
	ShapeUnknown        Shape = ""
	ShapeStructuredData Shape = "structured_data"
	ShapeInternalQuery  Shape = "internal_query"
	ShapePublicAPI      Shape = "public_api"
)

// Payload is a raw upstream response as returned by a fetch session.
type Payload struct {
	Shape     Shape
	Data      map[string]any
	SourceURL string
}

// envelopes are the wrapper paths a media node may sit under, most
// specific first.
var envelopes = []string{
	"data.xdt_shortcode_media",
	"data.shortcode_media",
	"graphql.shortcode_media",
	"xdt_shortcode_media",
	"shortcode_media",
}

// Decode parses a JSON document into a raw payload map. A top-level list,
// as JSON-LD blocks sometimes are, yields its first object.
func Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, err, "payload is not valid JSON")
	}

	switch doc := v.(type) {
	case map[string]any:
		return doc, nil
	case []any:
		for _, el := range doc {
			if obj, ok := el.(map[string]any); ok {
				return obj, nil
			}
		}
	}
	return nil, errors.UnrecognizedSchema("payload is not a JSON object")
}

// unwrap returns the media node inside a known envelope, or raw itself.
func unwrap(raw map[string]any) map[string]any {
	for _, path := range envelopes {
		if v, ok := lookup(raw, path); ok {
			if node, ok := v.(map[string]any); ok {
				return node
			}
		}
	}
	return raw
}

// Detect sniffs the shape of raw from its marker keys.
func Detect(raw map[string]any) Shape {
	node := unwrap(raw)

	if typename, ok := node["__typename"].(string); ok {
		switch {
		case strings.HasPrefix(typename, "XDTGraph"):
			return ShapePublicAPI
		case strings.HasPrefix(typename, "Graph"):
			return ShapeInternalQuery
		}
	}

	_, hasShortcode := node["shortcode"]
	if _, ok := node["owner"].(map[string]any); ok && hasShortcode {
		return ShapeInternalQuery
	}
	if _, ok := node["user"].(map[string]any); ok && hasShortcode {
		return ShapePublicAPI
	}

	for _, marker := range []string{"@context", "@type", "mainEntityOfPage", "interactionStatistic", "author"} {
		if _, ok := node[marker]; ok {
			return ShapeStructuredData
		}
	}
	return ShapeUnknown
}

// Normalize converts raw into a validated post. With ShapeUnknown the shape
// is detected; an explicit hint is trusted.
func Normalize(raw map[string]any, hint Shape) (*models.Post, error) {
	if raw == nil {
		return nil, errors.UnrecognizedSchema("empty payload")
	}

	shape := hint
	if shape == ShapeUnknown {
		shape = Detect(raw)
	}
	node := unwrap(raw)

	switch shape {
	case ShapeStructuredData:
		return fromStructuredData(node)
	case ShapeInternalQuery:
		return fromGraph(node, internalQuery)
	case ShapePublicAPI:
		return fromGraph(node, publicAPI)
	case ShapeUnknown:
		return nil, errors.UnrecognizedSchema("payload matches no known post shape")
	default:
		return nil, errors.UnrecognizedSchema(fmt.Sprintf("unknown shape %q", shape))
	}
}

// NormalizePayload normalizes p and fills in the post URL from the source
// when the payload did not carry one.
func NormalizePayload(p *Payload) (*models.Post, error) {
	if p == nil {
		return nil, errors.UnrecognizedSchema("empty payload")
	}
	post, err := Normalize(p.Data, p.Shape)
	if err != nil {
		return nil, err
	}
	if post.URL == "" {
		post.URL = p.SourceURL
	}
	return post, nil
}

// ShortcodeFromURL returns the post shortcode of a post URL. It prefers the
// segment after /p/, /reel/ or /tv/ and otherwise takes the last path
// segment, ignoring a trailing slash.
func ShortcodeFromURL(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}

	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return ""
	}

	for i := 0; i < len(segments)-1; i++ {
		switch segments[i] {
		case "p", "reel", "reels", "tv":
			return segments[i+1]
		}
	}
	return segments[len(segments)-1]
}

// PostURL builds the canonical URL of a shortcode.
func PostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return "https://www.instagram.com/p/" + shortcode + "/"
}
