package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderRequest describes one page load in a headless browser.
type RenderRequest struct {
	URL string
	// WaitFor is a CSS selector that must be present before the page is read.
	WaitFor string
	// Click is an optional CSS selector clicked after load. A click that
	// cannot be performed is logged and the page is read as is.
	Click string
	// Settle is how long to wait after loading and clicking.
	Settle time.Duration
}

// Renderer returns the HTML of a page after client-side scripts have run.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
}

// ChromeRenderer renders pages with a headless Chrome managed by chromedp.
// The browser is started on first use and shared by every Render call.
type ChromeRenderer struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	timeout       time.Duration
	clickTimeout  time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewChromeRenderer prepares a headless browser. timeout bounds each Render.
func NewChromeRenderer(timeout time.Duration, userAgent string, logger *slog.Logger) *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}))

	return &ChromeRenderer{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		timeout:       timeout,
		clickTimeout:  15 * time.Second,
		logger:        logger,
	}
}

// Render opens req.URL in a new tab and returns the document's outer HTML.
func (r *ChromeRenderer) Render(ctx context.Context, req RenderRequest) (string, error) {
	if err := r.start(); err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancel := context.WithTimeout(tabCtx, r.timeout)
	defer cancel()

	load := []chromedp.Action{chromedp.Navigate(req.URL)}
	if req.WaitFor != "" {
		load = append(load, chromedp.WaitReady(req.WaitFor, chromedp.ByQuery))
	}
	if err := chromedp.Run(tabCtx, load...); err != nil {
		return "", fmt.Errorf("render %s: %w", req.URL, err)
	}

	if req.Click != "" {
		clickCtx, cancelClick := context.WithTimeout(tabCtx, r.clickTimeout)
		err := chromedp.Run(clickCtx, chromedp.Click(req.Click, chromedp.ByQuery, chromedp.NodeVisible))
		cancelClick()
		if err != nil {
			r.logger.Warn("render click failed", "url", req.URL, "selector", req.Click, "error", err)
		}
	}

	var html string
	read := []chromedp.Action{}
	if req.Settle > 0 {
		read = append(read, chromedp.Sleep(req.Settle))
	}
	read = append(read, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(tabCtx, read...); err != nil {
		return "", fmt.Errorf("read rendered %s: %w", req.URL, err)
	}
	return html, nil
}

// start launches the browser so later tabs share it.
func (r *ChromeRenderer) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := chromedp.Run(r.browserCtx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	r.started = true
	return nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() error {
	r.cancelBrowser()
	r.cancelAlloc()
	return nil
}
