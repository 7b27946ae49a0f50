package instagram

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"instagramdl/pkg/config"
	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/logger"
	"instagramdl/pkg/normalizer"
)

const (
	declineCookiesXPath = `//button[contains(., "Decline optional cookies")]`
	cookieBannerTimeout = 3 * time.Second
	defaultPageTimeout  = 60 * time.Second
)

// BrowserSession renders the post page in headless Chrome and reads the
// JSON-LD block from the resulting DOM.
type BrowserSession struct {
	headless  bool
	timeout   time.Duration
	execPath  string
	userAgent string
	logger    logger.Logger
}

// NewBrowserSession creates a browser session. Chrome is started per fetch.
func NewBrowserSession(cfg config.BrowserConfig, userAgent string, log logger.Logger) *BrowserSession {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &BrowserSession{
		headless:  cfg.Headless,
		timeout:   timeout,
		execPath:  cfg.ExecPath,
		userAgent: userAgent,
		logger:    logger.OrDefault(log).WithField("component", "browser"),
	}
}

func (s *BrowserSession) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(s.userAgent),
		chromedp.WindowSize(1280, 900),
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if s.execPath != "" {
		opts = append(opts, chromedp.ExecPath(s.execPath))
	}
	return opts
}

// Fetch loads postURL in a fresh browser and extracts its structured data.
func (s *BrowserSession) Fetch(ctx context.Context, postURL string) (*normalizer.Payload, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, s.timeout)
	defer cancelTimeout()

	start := time.Now()
	var html string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(postURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(s.declineCookies),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		s.logger.ErrorWithFields("Browser navigation failed", map[string]interface{}{
			"url":      postURL,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.WithURL(errs.Wrap(errs.ErrorTypeNetwork, err, "browser navigation failed"), postURL)
	}

	s.logger.DebugWithFields("Page rendered", map[string]interface{}{
		"url":      postURL,
		"bytes":    len(html),
		"duration": time.Since(start),
	})

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.WithURL(errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse rendered page"), postURL)
	}
	return structuredPayload(doc, postURL)
}

// declineCookies dismisses the consent banner when one shows up. Its absence
// is not an error.
func (s *BrowserSession) declineCookies(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(ctx, cookieBannerTimeout)
	defer cancel()

	if err := chromedp.Click(declineCookiesXPath, chromedp.BySearch, chromedp.NodeVisible).Do(clickCtx); err != nil {
		s.logger.Debug("No cookie banner to dismiss")
		return nil
	}
	s.logger.Debug("Declined optional cookies")
	return nil
}
