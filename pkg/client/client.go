// Package client provides the catalog API gateway: authenticated JSON POST
// calls for identifier resolution and detail hydration.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/auth"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for catalog API calls.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog API requests by action and status",
	}, []string{"action", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by action",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"action"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

const (
	// DefaultEndpoint is the public catalog API.
	DefaultEndpoint = "https://api.valantis.store:41000/"

	// DefaultTimeout bounds a single catalog API call.
	DefaultTimeout = 10 * time.Second

	// maxErrorBody limits how much of an error response is kept.
	maxErrorBody = 512
)

// Config holds the client configuration.
type Config struct {
	// Endpoint is the catalog API URL all actions are posted to.
	Endpoint string

	// Password is the token namespace prefix (default: auth.DefaultPassword).
	Password string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds each call, including reading the body.
	Timeout time.Duration

	// Redis is optional; when set the request budget is shared through it.
	Redis *redis.Client

	// RateLimit is the request budget per second (0 disables pacing).
	RateLimit int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:  DefaultEndpoint,
		Password:  auth.DefaultPassword,
		UserAgent: "catalog-client/0.1.0",
		Timeout:   DefaultTimeout,
		RateLimit: ratelimit.DefaultConfig().RequestsPerSecond,
	}
}

// Client is the catalog API gateway. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	tokens     *auth.Provider
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint must be an absolute URL (got %q)", cfg.Endpoint)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %d)", cfg.RateLimit)
	}

	logger := logging.NewLogger("catalog-client")

	limiter := ratelimit.NewLimiter(cfg.Redis, ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit,
		Burst:             cfg.RateLimit,
	}, logger)

	return &Client{
		httpClient: &http.Client{},
		tokens:     auth.NewProvider(cfg.Password),
		limiter:    limiter,
		config:     cfg,
		logger:     logger,
	}, nil
}

// ResolveIdentifiers runs a listing or filter request and returns the
// identifiers in upstream order. Duplicates are kept.
func (c *Client) ResolveIdentifiers(ctx context.Context, req catalog.Request) ([]catalog.ProductID, error) {
	if req.Action != catalog.ActionGetIDs && req.Action != catalog.ActionFilter {
		return nil, &GatewayError{
			Action:  string(req.Action),
			Class:   ErrorClassRequest,
			Message: "action does not resolve identifiers",
		}
	}

	result, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var ids []catalog.ProductID
	if err := json.Unmarshal(result, &ids); err != nil {
		return nil, c.decodeError(string(req.Action), "result is not an identifier list", err)
	}

	c.logger.Debug().
		Str("action", string(req.Action)).
		Int("ids", len(ids)).
		Msg("Resolved identifiers")

	return ids, nil
}

// ResolveDetails hydrates ids into product records. An empty ids slice
// returns an empty result without a network call.
//
// Repeated records for the same identifier are collapsed to the first one.
// A *PartialResultError is returned if the remaining records do not cover
// the requested identifiers exactly.
func (c *Client) ResolveDetails(ctx context.Context, ids []catalog.ProductID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}

	req := catalog.BuildDetails(ids)
	result, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var records []catalog.Product
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, c.decodeError(string(req.Action), "result is not a product list", err)
	}

	products := catalog.DedupeBy(records, func(p catalog.Product) catalog.ProductID { return p.ID })
	if dropped := len(records) - len(products); dropped > 0 {
		c.logger.Debug().Int("dropped", dropped).Msg("Collapsed repeated product records")
	}

	if err := checkCoverage(ids, products); err != nil {
		catalogErrorsTotal.WithLabelValues("partial").Inc()
		c.logger.Warn().Err(err).Msg("Partial detail result")
		return nil, err
	}

	return products, nil
}

// checkCoverage verifies that products hold exactly one record per unique id.
func checkCoverage(ids []catalog.ProductID, products []catalog.Product) error {
	requested := catalog.Dedupe(ids)

	returned := make(map[catalog.ProductID]struct{}, len(products))
	for _, p := range products {
		returned[p.ID] = struct{}{}
	}

	var missing []catalog.ProductID
	for _, id := range requested {
		if _, ok := returned[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 || len(products) != len(requested) {
		return &PartialResultError{
			Requested: len(requested),
			Returned:  len(products),
			Missing:   missing,
		}
	}
	return nil
}

// Do posts req to the catalog API and returns the raw "result" field.
// Each call is paced, carries a freshly derived X-Auth token and is bounded
// by Config.Timeout.
func (c *Client) Do(ctx context.Context, req catalog.Request) (json.RawMessage, error) {
	action := string(req.Action)

	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(action).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", action, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, c.fail(&GatewayError{Action: action, Class: ErrorClassRequest, Message: "encode request", Err: err})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(&GatewayError{Action: action, Class: ErrorClassRequest, Message: "create request", Err: err})
	}

	httpReq.Header.Set(auth.HeaderName, c.tokens.Token())
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("action", action).
		Msg("Executing catalog request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		catalogRequestsTotal.WithLabelValues(action, "network_error").Inc()
		return nil, c.transportError(ctx, callCtx, action, err)
	}
	defer resp.Body.Close()

	catalogRequestsTotal.WithLabelValues(action, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := strings.TrimSpace(string(snippet))
		if message == "" {
			message = resp.Status
		}

		c.logger.Warn().
			Str("action", action).
			Int("status", resp.StatusCode).
			Msg("Catalog request error")

		return nil, c.fail(&GatewayError{
			Action:     action,
			Class:      ErrorClassStatus,
			StatusCode: resp.StatusCode,
			Message:    message,
		})
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if callCtx.Err() != nil {
			return nil, c.transportError(ctx, callCtx, action, err)
		}
		return nil, c.decodeError(action, "malformed response body", err)
	}

	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil, c.decodeError(action, "response missing result", nil)
	}

	return envelope.Result, nil
}

// transportError maps a failed round trip to the caller's context error,
// a *TimeoutError, or a network *GatewayError.
func (c *Client) transportError(ctx, callCtx context.Context, action string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.logger.Debug().Str("action", action).Err(ctxErr).Msg("Catalog request abandoned by caller")
		return fmt.Errorf("catalog %s: %w", action, ctxErr)
	}

	var netErr net.Error
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassTimeout)).Inc()
		c.logger.Warn().
			Str("action", action).
			Dur("timeout", c.config.Timeout).
			Msg("Catalog request timed out")
		return &TimeoutError{Action: action, Timeout: c.config.Timeout, Err: err}
	}

	c.logger.Error().Err(err).Str("action", action).Msg("HTTP request failed")
	return c.fail(&GatewayError{Action: action, Class: ErrorClassNetwork, Err: err})
}

func (c *Client) decodeError(action, message string, err error) error {
	return c.fail(&GatewayError{Action: action, Class: ErrorClassDecode, Message: message, Err: err})
}

// fail records a gateway error in metrics and returns it.
func (c *Client) fail(err *GatewayError) error {
	catalogErrorsTotal.WithLabelValues(string(err.Class)).Inc()
	return err
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetTokenProvider replaces the token provider (for testing).
func (c *Client) SetTokenProvider(p *auth.Provider) {
	c.tokens = p
}
