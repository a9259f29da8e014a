// Package scraper fetches and parses property listing pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
	"github.com/garyellow/realestate-linebot-go/internal/metrics"
	"github.com/garyellow/realestate-linebot-go/internal/ratelimit"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	Site              string // metrics label, defaults to "sinyi"
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration // first backoff step, defaults to 1s
	RequestsPerSecond float64

	HTTPClient *http.Client // optional, for tests
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// Client is an HTTP client for scraping with pacing, retries and
// user agent rotation.
type Client struct {
	site       string
	httpClient *http.Client
	pacer      *ratelimit.Limiter
	maxRetries int
	retryDelay time.Duration
	userAgents []string
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	if opts.Site == "" {
		opts.Site = "sinyi"
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		site:       opts.Site,
		httpClient: httpClient,
		pacer:      ratelimit.New(1, opts.RequestsPerSecond),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		userAgents: userAgents(),
		metrics:    opts.Metrics,
		log:        opts.Logger.WithModule("scraper"),
	}
}

// Get performs a paced GET with retries. The caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	start := time.Now()

	err := RetryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() error {
		if err := c.pacer.Wait(ctx); err != nil {
			return permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", c.randomUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7")
		req.Header.Set("Accept-Encoding", "gzip")

		r, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return permanent(ctx.Err())
			}
			return fmt.Errorf("request failed: %w", err)
		}

		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}
		_ = r.Body.Close()

		statusErr := apperrors.NewScraperError(url, r.StatusCode, apperrors.ErrScrapeFailed)
		switch r.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			c.log.WithField("status", r.StatusCode).Debug("Listing request failed, retrying")
			return statusErr
		default:
			return permanent(statusErr)
		}
	})

	if err != nil {
		c.metrics.RecordScraperRequest(c.site, "error", time.Since(start).Seconds())
		return nil, err
	}
	c.metrics.RecordScraperRequest(c.site, "success", time.Since(start).Seconds())
	return resp, nil
}

// GetDocument fetches url and parses it as HTML, decoding gzip and Big5
// bodies.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	if strings.Contains(strings.ToUpper(resp.Header.Get("Content-Type")), "BIG5") {
		reader = transform.NewReader(reader, traditionalchinese.Big5.NewDecoder())
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// IsNetworkError reports whether err looks like a transport failure worth
// retrying later, as opposed to a rejected request.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var se *apperrors.ScraperError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "no such host", "eof", "timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) randomUserAgent() string {
	if len(c.userAgents) == 0 {
		return uarand.GetRandom()
	}
	return c.userAgents[time.Now().UnixNano()%int64(len(c.userAgents))]
}

// userAgents mixes a few pinned desktop browsers with random ones.
func userAgents() []string {
	agents := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	}
	for range 4 {
		agents = append(agents, uarand.GetRandom())
	}
	return agents
}
