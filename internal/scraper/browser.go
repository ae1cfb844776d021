package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// browserSource renders pages in a shared headless Chrome. Each fetch gets
// its own tab.
type browserSource struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
}

func newBrowserSource(timeout time.Duration) *browserSource {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("lang", "ja-JP"),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &browserSource{allocCtx: allocCtx, cancel: cancel, timeout: timeout}
}

func (b *browserSource) Document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()
	if b.timeout > 0 {
		tabCtx, cancel = context.WithTimeout(tabCtx, b.timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("failed to render URL %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", pageURL, err)
	}
	return doc, nil
}

// Close shuts down the browser process.
func (b *browserSource) Close() {
	b.cancel()
}
