package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/client"
	"github.com/Sternrassler/catalog-client/pkg/fetcher"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/metrics"
	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// productFetcher is the part of *fetcher.Fetcher the handlers use.
type productFetcher interface {
	FetchProducts(ctx context.Context, criteria catalog.FilterCriteria, page catalog.PageRequest) ([]catalog.Product, error)
}

type server struct {
	products productFetcher
	batch    *pagination.BatchFetcher
	redis    *redis.Client
	logger   zerolog.Logger
}

var _ productFetcher = (*fetcher.Fetcher)(nil)

func newServer(products productFetcher, batch *pagination.BatchFetcher, redisClient *redis.Client) *server {
	return &server{
		products: products,
		batch:    batch,
		redis:    redisClient,
		logger:   logging.NewLogger("catalog-proxy"),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(s.logger))

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/products", s.productsHandler)
	r.Get("/products/pages", s.pagesHandler)
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports whether the shared rate-limit store is reachable.
func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

type productsResponse struct {
	Page     int               `json:"page"`
	Products []catalog.Product `json:"products"`
}

type pagesResponse struct {
	Pages map[int][]catalog.Product `json:"pages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// productsHandler serves one listing page, or the filter result when any of
// name, price or brand is given. Filter results are reported as page 1.
func (s *server) productsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := positiveInt(q.Get("page"), 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "page must be a positive integer"})
		return
	}

	criteria := catalog.FilterCriteria{
		Name:  q.Get("name"),
		Price: q.Get("price"),
		Brand: q.Get("brand"),
	}
	if !criteria.IsEmpty() {
		page = 1
	}

	products, err := s.products.FetchProducts(r.Context(), criteria, catalog.NewPageRequest(page))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, productsResponse{Page: page, Products: products})
}

// pagesHandler serves the listing pages from..to inclusive.
func (s *server) pagesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := positiveInt(q.Get("from"), 0)
	if err != nil || from == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from must be a positive integer"})
		return
	}
	to, err := positiveInt(q.Get("to"), from)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to must be a positive integer"})
		return
	}

	pages, err := s.batch.FetchPages(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pagesResponse{Pages: pages})
}

// writeError maps pipeline failures onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	var timeoutErr *client.TimeoutError
	switch {
	case errors.Is(err, catalog.ErrInvalidFilter), errors.Is(err, pagination.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logger := logging.FromContext(r.Context(), s.logger)
		logger.Warn().
			Err(err).
			Int("status", status).
			Msg("Catalog fetch failed")
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// positiveInt parses a 1-based query value; empty yields fallback.
func positiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid positive integer %q", raw)
	}
	return n, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

func accessLogMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			reqLogger := logging.FromContext(r.Context(), logger)
			reqLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
