package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/tradeidea/internal/models"
)

// DefaultWorkers bounds concurrent scrapes when no bound is configured.
const DefaultWorkers = 10

// Coordinator fans URL scrapes out over a bounded pool of goroutines.
type Coordinator struct {
	fetcher Fetcher
	workers int
	logger  *zap.Logger
}

// NewCoordinator returns a coordinator running at most workers scrapes at once.
func NewCoordinator(fetcher Fetcher, workers int, logger *zap.Logger) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{fetcher: fetcher, workers: workers, logger: logger}
}

// ScrapeAll scrapes every URL and returns the successful results keyed by URL.
// Results are collected in completion order. A failed or panicking scrape is
// logged and left out; the batch always runs to the end and the returned map
// is never nil.
func (c *Coordinator) ScrapeAll(ctx context.Context, urls []string) map[string]models.URLResult {
	start := time.Now()
	c.logger.Info("starting parallel scrape", zap.Int("urls", len(urls)), zap.Int("workers", c.workers))

	results := make(chan Result)
	go func() {
		var g errgroup.Group
		g.SetLimit(c.workers)
		for _, u := range urls {
			u := u
			g.Go(func() error {
				results <- c.scrapeOne(ctx, u)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	out := make(map[string]models.URLResult, len(urls))
	for res := range results {
		if !res.OK() {
			c.logger.Warn("excluding url", zap.String("url", res.URL), zap.Error(res.Err))
			continue
		}
		out[res.URL] = res.Data
		c.logger.Debug("scraped", zap.String("url", res.URL))
	}

	c.logger.Info("completed parallel scrape",
		zap.Int("succeeded", len(out)),
		zap.Int("total", len(urls)),
		zap.Duration("elapsed", time.Since(start)))
	return out
}

func (c *Coordinator) scrapeOne(ctx context.Context, url string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{URL: url, Err: fmt.Errorf("scrape panicked: %v", r)}
		}
	}()
	res = c.fetcher.Scrape(ctx, url)
	res.URL = url
	return res
}
