// Package fetcher runs the product-retrieval pipeline: build the request,
// resolve identifiers, drop duplicates and hydrate details.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for fetch pipelines.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fetches_total",
		Help: "Total product fetches by mode and outcome",
	}, []string{"mode", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_fetch_duration_seconds",
		Help:    "Product fetch pipeline duration in seconds by mode",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"mode"})

	duplicateIDsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_duplicate_ids_total",
		Help: "Total duplicate identifiers dropped from upstream identifier lists",
	})
)

const (
	modeList   = "list"
	modeFilter = "filter"
)

// Gateway is the remote side of the pipeline. *client.Client implements it.
type Gateway interface {
	ResolveIdentifiers(ctx context.Context, req catalog.Request) ([]catalog.ProductID, error)
	ResolveDetails(ctx context.Context, ids []catalog.ProductID) ([]catalog.Product, error)
}

// Fetcher runs fetch pipelines against a Gateway. It holds no per-fetch
// state and is safe for concurrent use.
type Fetcher struct {
	gateway Gateway
	logger  zerolog.Logger
}

// New creates a fetcher.
func New(gateway Gateway) *Fetcher {
	return &Fetcher{
		gateway: gateway,
		logger:  logging.NewLogger("fetcher"),
	}
}

// FetchProducts returns the products for criteria, or for page when no
// criteria field is set. Any failure aborts the pipeline; no partial result
// is returned.
func (f *Fetcher) FetchProducts(ctx context.Context, criteria catalog.FilterCriteria, page catalog.PageRequest) ([]catalog.Product, error) {
	mode := modeList
	if !criteria.IsEmpty() {
		mode = modeFilter
	}

	logger := logging.WithFetchID(logging.FromContext(ctx, f.logger), uuid.NewString()).
		With().
		Str("mode", mode).
		Logger()

	start := time.Now()
	products, err := f.run(ctx, logger, criteria, page)
	fetchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	fetchesTotal.WithLabelValues(mode, outcome(err)).Inc()

	if err != nil {
		logger.Debug().Err(err).Msg("Fetch failed")
		return nil, err
	}

	logger.Info().
		Int("page", page.Number()).
		Int("products", len(products)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return products, nil
}

// FetchPage returns one listing page. It satisfies pagination.PageFetcher.
func (f *Fetcher) FetchPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Product, error) {
	return f.FetchProducts(ctx, catalog.FilterCriteria{}, page)
}

func (f *Fetcher) run(ctx context.Context, logger zerolog.Logger, criteria catalog.FilterCriteria, page catalog.PageRequest) ([]catalog.Product, error) {
	req, err := catalog.Build(criteria, page)
	if err != nil {
		return nil, err
	}

	ids, err := f.gateway.ResolveIdentifiers(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve identifiers: %w", err)
	}

	unique := catalog.Dedupe(ids)
	if dropped := len(ids) - len(unique); dropped > 0 {
		duplicateIDsTotal.Add(float64(dropped))
		logger.Warn().
			Int("ids", len(ids)).
			Int("duplicates", dropped).
			Msg("Upstream returned duplicate identifiers")
	}

	products, err := f.gateway.ResolveDetails(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve details: %w", err)
	}

	return products, nil
}

// outcome labels err for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, catalog.ErrInvalidFilter):
		return "invalid_filter"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
