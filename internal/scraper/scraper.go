package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/aiotter/discord-amazon-url-shortener/internal/config"
	"github.com/aiotter/discord-amazon-url-shortener/internal/metrics"
	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
	"github.com/aiotter/discord-amazon-url-shortener/internal/validator"
)

const (
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	acceptLanguage = "ja-JP,ja;q=0.9"
)

// pageSource turns a URL into a parsed document.
type pageSource interface {
	Document(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Client retrieves product data from product pages. Each Fetch is one
// best-effort attempt.
type Client struct {
	source    pageSource
	selectors SelectorConfig
	config    *config.Config
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	group     singleflight.Group
	validate  *validator.Validator
	closer    func()
}

// New builds a Client using the backend named by cfg.FetchBackend.
func New(cfg *config.Config, selectors SelectorConfig) *Client {
	var source pageSource
	closer := func() {}
	switch cfg.FetchBackend {
	case config.BackendBrowser:
		b := newBrowserSource(cfg.FetchTimeout)
		source, closer = b, b.Close
	default:
		source = newHTTPSource(cfg.FetchTimeout)
	}
	return newClient(cfg, selectors, source, closer)
}

func newClient(cfg *config.Config, selectors SelectorConfig, source pageSource, closer func()) *Client {
	burst := cfg.FetchBurst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(cfg.FetchRate)
	if cfg.FetchRate <= 0 {
		limit = rate.Inf
	}
	return &Client{
		source:    source,
		selectors: selectors,
		config:    cfg,
		limiter:   rate.NewLimiter(limit, burst),
		breaker:   newBreaker("product-page"),
		validate:  validator.New(),
		closer:    closer,
	}
}

// Close releases the page backend (the headless browser, if any).
func (c *Client) Close() {
	c.closer()
}

// Fetch retrieves productURL and extracts its product fields. Concurrent
// calls for the same URL share one request. Missing fields are not errors;
// every returned error wraps models.ErrFetch.
func (c *Client) Fetch(ctx context.Context, productURL string) (models.ProductData, error) {
	if err := c.checkAllowed(productURL); err != nil {
		metrics.FetchTotal.WithLabelValues("rejected").Inc()
		return models.ProductData{}, fmt.Errorf("%w: %v", models.ErrFetch, err)
	}

	v, err, shared := c.group.Do(productURL, func() (interface{}, error) {
		return c.fetchOnce(ctx, productURL)
	})
	if shared {
		slog.Debug("Shared in-progress product fetch", "url", productURL)
	}
	if err != nil {
		return models.ProductData{}, err
	}
	return v.(models.ProductData), nil
}

func (c *Client) fetchOnce(ctx context.Context, productURL string) (models.ProductData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.FetchTotal.WithLabelValues("cancelled").Inc()
		return models.ProductData{}, fmt.Errorf("%w: rate limiter: %v", models.ErrFetch, err)
	}

	start := time.Now()
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.source.Document(ctx, productURL)
	})
	metrics.FetchDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.FetchTotal.WithLabelValues("breaker_open").Inc()
		} else {
			metrics.FetchTotal.WithLabelValues("error").Inc()
		}
		return models.ProductData{}, fmt.Errorf("%w: %s: %v", models.ErrFetch, productURL, err)
	}

	data := c.extract(v.(*goquery.Document))
	if data.IsEmpty() {
		metrics.FetchTotal.WithLabelValues("empty").Inc()
		slog.Warn("Product page had none of the expected fields. Potential block or page structure change", "url", productURL)
	} else {
		metrics.FetchTotal.WithLabelValues("ok").Inc()
	}
	return data, nil
}

// extract reads the product fields from doc. Absent fields stay empty.
func (c *Client) extract(doc *goquery.Document) models.ProductData {
	sel := c.selectors.Product
	var data models.ProductData

	for _, query := range sel.Price {
		if price := strings.TrimSpace(doc.Find(query).First().Text()); price != "" {
			data.Price = price
			break
		}
	}

	if sel.Title != "" {
		data.Title = strings.TrimSpace(doc.Find(sel.Title).First().Text())
	}

	if sel.Image != "" {
		if src, exists := doc.Find(sel.Image).First().Attr("src"); exists {
			src = strings.TrimSpace(src)
			// Inline data: placeholders cannot be used as a thumbnail.
			if c.validate.ValidateVar(src, "http_url") == nil {
				data.ImageURL = src
			}
		}
	}

	if sel.Rating != "" {
		data.Rating = strings.TrimSpace(doc.Find(sel.Rating).First().Text())
	}

	return data
}

func (c *Client) checkAllowed(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL %s: %w", rawURL, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %s: only http and https allowed", parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()
	for _, domain := range c.config.AllowedHosts {
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return nil
		}
	}
	return fmt.Errorf("security violation: URL hostname %s is not in allowlist", hostname)
}

type httpSource struct {
	httpClient *http.Client
}

func newHTTPSource(timeout time.Duration) *httpSource {
	// A zero timeout means no timeout.
	return &httpSource{httpClient: &http.Client{Timeout: timeout}}
}

func (s *httpSource) Document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch URL %s: status code %d", pageURL, res.StatusCode)
	}

	body, err := charset.NewReader(res.Body, res.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode body of %s: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", pageURL, err)
	}
	return doc, nil
}
