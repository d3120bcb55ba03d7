// Package scraper fetches web pages and reduces them to plain text, title and
// description.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/pkg/utils"
)

var (
	// ErrNoContent is returned when a page yields no readable text.
	ErrNoContent = errors.New("no extractable content")
	// ErrUnsupportedContent is returned for bodies that are neither HTML nor plain text.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Result is the outcome of scraping one URL: Data on success, Err otherwise.
type Result struct {
	URL  string
	Data models.URLResult
	Err  error
}

// OK reports whether the scrape succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Fetcher scrapes a single URL. Implementations never panic on bad input and
// report every failure through Result.Err.
type Fetcher interface {
	Scrape(ctx context.Context, url string) Result
}

// Options configures an HTTPScraper.
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
}

// HTTPScraper fetches pages over HTTP and extracts their readable text.
type HTTPScraper struct {
	client       *http.Client
	limiter      *rate.Limiter
	userAgent    string
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHTTPScraper returns a scraper with a pooled transport and a shared rate limiter.
func NewHTTPScraper(opts Options, logger *zap.Logger) *HTTPScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:      rate.NewLimiter(limit, burst),
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       logger,
	}
}

// Scrape fetches url and extracts its text, title and meta description.
// Failures are logged and returned in the Result, never as a panic.
func (s *HTTPScraper) Scrape(ctx context.Context, url string) Result {
	data, err := s.scrape(ctx, url)
	if err != nil {
		s.logger.Warn("scrape failed", zap.String("url", url), zap.Error(err))
		return Result{URL: url, Err: err}
	}
	s.logger.Debug("scraped url", zap.String("url", url), zap.Int("text_len", len(data.TextContent)))
	return Result{URL: url, Data: data}
}

func (s *HTTPScraper) scrape(ctx context.Context, url string) (models.URLResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return models.URLResult{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.URLResult{}, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.URLResult{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.URLResult{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := charset.NewReader(io.LimitReader(resp.Body, s.maxBodyBytes), contentType)
	if err != nil {
		return models.URLResult{}, fmt.Errorf("decode body: %w", err)
	}

	var result models.URLResult
	switch mediaType(contentType) {
	case "text/plain":
		raw, err := io.ReadAll(body)
		if err != nil {
			return models.URLResult{}, fmt.Errorf("read body: %w", err)
		}
		result = models.URLResult{TextContent: strings.TrimSpace(string(raw))}
	case "", "text/html", "application/xhtml+xml":
		result, err = ParseHTML(body)
		if err != nil {
			return models.URLResult{}, err
		}
	default:
		return models.URLResult{}, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	if result.TextContent == "" {
		return models.URLResult{}, ErrNoContent
	}
	result.URL = url
	return result, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}

const (
	hiddenElements = "script, style, noscript, svg, iframe, template, head"
	blockElements  = "p, div, br, li, h1, h2, h3, h4, h5, h6, tr, section, article, header, footer, blockquote, pre"
)

// ParseHTML extracts the title, meta description and visible text of an HTML page.
func ParseHTML(r io.Reader) (models.URLResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.URLResult{}, fmt.Errorf("parse html: %w", err)
	}

	title := utils.CollapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = metaContent(doc, `meta[property="og:title"]`)
	}
	desc := metaContent(doc, `meta[name="description"]`)
	if desc == "" {
		desc = metaContent(doc, `meta[property="og:description"]`)
	}

	doc.Find(hiddenElements).Remove()
	doc.Find(blockElements).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var lines []string
	for _, line := range strings.Split(root.Text(), "\n") {
		if line = utils.CollapseWhitespace(line); line != "" {
			lines = append(lines, line)
		}
	}

	return models.URLResult{
		TextContent:     strings.Join(lines, "\n"),
		Title:           title,
		MetaDescription: desc,
	}, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return utils.CollapseWhitespace(v)
}
