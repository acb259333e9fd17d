package fetcher

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var staleFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "catalog_stale_fetches_total",
	Help: "Total fetches discarded because a newer fetch started",
})

// ErrStale is returned by Session.Fetch when a newer fetch started before
// this one finished. The stale result is discarded.
var ErrStale = errors.New("fetch superseded by a newer request")

// ProductFetcher runs one fetch pipeline. *Fetcher implements it.
type ProductFetcher interface {
	FetchProducts(ctx context.Context, criteria catalog.FilterCriteria, page catalog.PageRequest) ([]catalog.Product, error)
}

// Session holds the result list shown to one consumer and applies fetch
// results in start order: starting a fetch cancels the one in flight, so an
// older response can never overwrite a newer one.
type Session struct {
	fetcher ProductFetcher

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	page     catalog.PageRequest
	criteria catalog.FilterCriteria
	products []catalog.Product
}

// NewSession creates a session positioned on page 1 with no results.
func NewSession(f ProductFetcher) *Session {
	return &Session{
		fetcher:  f,
		page:     catalog.NewPageRequest(1),
		products: []catalog.Product{},
	}
}

// Fetch runs a pipeline for criteria and page. On success the held results,
// page and criteria are replaced. On failure they are left as they were.
func (s *Session) Fetch(ctx context.Context, criteria catalog.FilterCriteria, page catalog.PageRequest) ([]catalog.Product, error) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	products, err := s.fetcher.FetchProducts(ctx, criteria, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()

	if seq != s.seq {
		staleFetchesTotal.Inc()
		return nil, ErrStale
	}
	s.cancel = nil

	if err != nil {
		return nil, err
	}

	s.products = products
	s.page = page
	s.criteria = criteria
	return copyProducts(products), nil
}

// Next fetches the page after the current one with the current criteria.
func (s *Session) Next(ctx context.Context) ([]catalog.Product, error) {
	criteria, page := s.position()
	return s.Fetch(ctx, criteria, catalog.NextPage(page))
}

// Prev fetches the page before the current one, never going below page 1.
func (s *Session) Prev(ctx context.Context) ([]catalog.Product, error) {
	criteria, page := s.position()
	return s.Fetch(ctx, criteria, catalog.PrevPage(page))
}

// Filter applies new criteria starting again from page 1.
func (s *Session) Filter(ctx context.Context, criteria catalog.FilterCriteria) ([]catalog.Product, error) {
	return s.Fetch(ctx, criteria, catalog.NewPageRequest(1))
}

// Products returns a copy of the held results.
func (s *Session) Products() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProducts(s.products)
}

// Page returns the page of the held results.
func (s *Session) Page() catalog.PageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Criteria returns the criteria of the held results.
func (s *Session) Criteria() catalog.FilterCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

func (s *Session) position() (catalog.FilterCriteria, catalog.PageRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria, s.page
}

func copyProducts(products []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, len(products))
	copy(out, products)
	return out
}
