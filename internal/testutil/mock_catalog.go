// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

// MockResponse defines a canned response for one action.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// RecordedRequest is one request received by the mock.
type RecordedRequest struct {
	Action string
	Params json.RawMessage
	Auth   string
}

// MockCatalog is a configurable mock catalog API for testing.
// Without custom handlers it serves get_ids, filter and get_items from
// Products.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest

	// Products backs the default handlers. Set before issuing requests.
	Products []catalog.Product
}

// NewMockCatalog creates and starts a new mock catalog API.
func NewMockCatalog(products ...catalog.Product) *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]http.HandlerFunc),
		Products: products,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for one action.
func (m *MockCatalog) SetHandler(action catalog.Action, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[string(action)] = handler
}

// SetResponse configures a canned response for one action.
func (m *MockCatalog) SetResponse(action catalog.Action, resp MockResponse) {
	m.SetHandler(action, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetIDsResult makes get_ids and filter return ids regardless of params.
func (m *MockCatalog) SetIDsResult(ids ...catalog.ProductID) {
	body := ResultBody(ids)
	m.SetResponse(catalog.ActionGetIDs, MockResponse{StatusCode: http.StatusOK, Body: body})
	m.SetResponse(catalog.ActionFilter, MockResponse{StatusCode: http.StatusOK, Body: body})
}

// Requests returns a copy of the recorded requests.
func (m *MockCatalog) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests received.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// CountAction returns the number of requests received for action.
func (m *MockCatalog) CountAction(action catalog.Action) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requests {
		if r.Action == string(action) {
			n++
		}
	}
	return n
}

// ResultBody wraps v in the {"result": ...} envelope.
func ResultBody(v any) string {
	data, err := json.Marshal(map[string]any{"result": v})
	if err != nil {
		panic(err)
	}
	return string(data)
}

func (m *MockCatalog) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string          `json:"action"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Action: req.Action,
		Params: req.Params,
		Auth:   r.Header.Get("X-Auth"),
	})
	handler, exists := m.handlers[req.Action]
	m.mu.Unlock()

	if exists {
		handler(w, r)
		return
	}

	m.defaultHandler(w, req.Action, req.Params)
}

// defaultHandler answers from Products the way the real API does.
func (m *MockCatalog) defaultHandler(w http.ResponseWriter, action string, params json.RawMessage) {
	m.mu.RLock()
	products := m.Products
	m.mu.RUnlock()

	var result any
	switch catalog.Action(action) {
	case catalog.ActionGetIDs:
		var p struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		ids := []catalog.ProductID{}
		for i := p.Offset; i < len(products) && i < p.Offset+p.Limit; i++ {
			ids = append(ids, products[i].ID)
		}
		result = ids

	case catalog.ActionFilter:
		var p struct {
			Product *string  `json:"product"`
			Price   *float64 `json:"price"`
			Brand   *string  `json:"brand"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		ids := []catalog.ProductID{}
		for _, prod := range products {
			if p.Product != nil && !strings.EqualFold(prod.Name, *p.Product) {
				continue
			}
			if p.Price != nil && prod.Price != *p.Price {
				continue
			}
			if p.Brand != nil && !strings.EqualFold(prod.Brand, *p.Brand) {
				continue
			}
			ids = append(ids, prod.ID)
		}
		result = ids

	case catalog.ActionGetItems:
		var p struct {
			IDs []catalog.ProductID `json:"ids"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		byID := make(map[catalog.ProductID]catalog.Product, len(products))
		for _, prod := range products {
			byID[prod.ID] = prod
		}
		items := []catalog.Product{}
		for _, id := range p.IDs {
			if prod, ok := byID[id]; ok {
				items = append(items, prod)
			}
		}
		result = items

	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ResultBody(result)))
}

// SampleProducts returns n products with ids "p1".."pn".
func SampleProducts(n int) []catalog.Product {
	brands := []string{"Piaget", "Cartier", ""}
	products := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, catalog.Product{
			ID:    catalog.ProductID("p" + strconv.Itoa(i)),
			Name:  "Product " + strconv.Itoa(i),
			Price: float64(i * 100),
			Brand: brands[i%len(brands)],
		})
	}
	return products
}

