package instagram

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/normalizer"
)

// PageSession reads the JSON-LD block of the server-rendered post page.
type PageSession struct {
	client *Client
}

// NewPageSession creates a page session
func NewPageSession(client *Client) *PageSession {
	return &PageSession{client: client}
}

// Fetch downloads the post page and extracts its structured data.
func (s *PageSession) Fetch(ctx context.Context, postURL string) (*normalizer.Payload, error) {
	resp, err := s.client.Get(ctx, postURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := s.client.checkResponseStatus(resp); err != nil {
		return nil, asUnavailable(err, postURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errs.WithURL(errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse post page"), postURL)
	}
	return structuredPayload(doc, postURL)
}

// ExtractStructuredData returns the first JSON-LD object of an HTML page.
// A script holding a list yields its first element.
func ExtractStructuredData(r io.Reader) (map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse HTML")
	}
	return extractLD(doc)
}

func extractLD(doc *goquery.Document) (map[string]any, error) {
	var (
		found   map[string]any
		lastErr error
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		obj, err := normalizer.Decode([]byte(text))
		if err != nil {
			lastErr = err
			return true
		}
		found = obj
		return false
	})

	if found != nil {
		return found, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errs.UnrecognizedSchema("page carries no structured data")
}

func pageUnavailable(doc *goquery.Document) bool {
	return strings.Contains(doc.Find("body").Text(), UnavailableText) ||
		strings.Contains(doc.Find("title").Text(), UnavailableText)
}

func structuredPayload(doc *goquery.Document, postURL string) (*normalizer.Payload, error) {
	if pageUnavailable(doc) {
		return nil, errs.Unavailable(postURL)
	}
	data, err := extractLD(doc)
	if err != nil {
		return nil, errs.WithURL(err, postURL)
	}
	return &normalizer.Payload{Shape: normalizer.ShapeStructuredData, Data: data, SourceURL: postURL}, nil
}
