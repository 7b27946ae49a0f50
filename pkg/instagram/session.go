package instagram

import (
	"context"
	"fmt"

	"instagramdl/pkg/config"
	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/logger"
	"instagramdl/pkg/normalizer"
)

// Session retrieves the raw payload describing one post.
//
// Implementations report removed or private posts with errs.Unavailable and
// every other failure with a differently typed error.
type Session interface {
	Fetch(ctx context.Context, postURL string) (*normalizer.Payload, error)
}

// NewSession builds the session selected by cfg.Instagram.Session
func NewSession(cfg *config.Config, client *Client, log logger.Logger) (Session, error) {
	if cfg.Instagram.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Instagram.UserAgent)
	}

	switch cfg.Instagram.Session {
	case config.SessionAPI:
		return NewAPISession(client, cfg.Instagram.DocID, cfg.Instagram.UserAgent), nil
	case config.SessionQuery:
		return NewQuerySession(client, cfg.Instagram.QueryHash), nil
	case config.SessionPage:
		return NewPageSession(client), nil
	case config.SessionBrowser:
		return NewBrowserSession(cfg.Browser, cfg.Instagram.UserAgent, log), nil
	default:
		return nil, fmt.Errorf("unknown session %q", cfg.Instagram.Session)
	}
}

// requireShortcode rejects URLs that do not name a post.
func requireShortcode(postURL string) (string, error) {
	shortcode := ShortcodeFromURL(postURL)
	if shortcode == "" {
		return "", errs.WithURL(errs.Validation("url", "URL does not contain a post shortcode"), postURL)
	}
	return shortcode, nil
}

// asUnavailable turns a not-found transport error into an unavailable post.
func asUnavailable(err error, postURL string) error {
	if errs.TypeOf(err) == errs.ErrorTypeNotFound {
		return errs.Unavailable(postURL)
	}
	return err
}
