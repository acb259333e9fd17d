package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/rs/zerolog/log"
)

// ErrInvalidRange is returned for an empty, inverted or oversized page range.
var ErrInvalidRange = errors.New("invalid page range")

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page fetches
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxPages caps the size of one range
	MaxPages int
}

// DefaultConfig returns defaults sized for a 5 req/s upstream budget.
// Each page costs two requests.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
		MaxPages:       20,
	}
}

// PageFetcher fetches one listing page. *fetcher.Fetcher implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Product, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Products   []catalog.Product
	Error      error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaults.MaxPages
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// MaxPages reports the largest range FetchPages accepts.
func (bf *BatchFetcher) MaxPages() int {
	return bf.config.MaxPages
}

// FetchPages fetches pages first through last (1-based, inclusive) and
// returns them keyed by page number. Any page failure fails the whole batch.
func (bf *BatchFetcher) FetchPages(ctx context.Context, first, last int) (map[int][]catalog.Product, error) {
	if first < 1 || last < first {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidRange, first, last)
	}
	total := last - first + 1
	if total > bf.config.MaxPages {
		return nil, fmt.Errorf("%w: %d pages requested, max %d", ErrInvalidRange, total, bf.config.MaxPages)
	}

	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info().
		Int("first", first).
		Int("last", last).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	pageQueue := make(chan int, total)
	pageResults := make(chan PageResult, total)

	for page := first; page <= last; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	workers := bf.config.MaxConcurrency
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	results := make(map[int][]catalog.Product, total)
	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", result.PageNumber, result.Error)
				cancel()
			}
			continue
		}
		results[result.PageNumber] = result.Products
	}

	if firstErr == nil && len(results) < total {
		// Workers stopped early on parent cancellation.
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched", len(results)).
			Int("total", total).
			Msg("Batch fetch failed")
		return nil, firstErr
	}

	log.Info().
		Int("pages", total).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		products, err := bf.fetcher.FetchPage(pageCtx, catalog.NewPageRequest(pageNum))
		cancel()

		// results is buffered for every page, so sends never block.
		results <- PageResult{PageNumber: pageNum, Products: products, Error: err}
		if err != nil {
			log.Debug().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
			return
		}

		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
