package catalog

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		criteria FilterCriteria
		page     PageRequest
		expected Request
	}{
		{
			name:     "empty criteria lists first page",
			criteria: FilterCriteria{},
			page:     PageRequest{Offset: 0, Limit: 50},
			expected: Request{
				Action: ActionGetIDs,
				Params: map[string]any{"offset": 0, "limit": 50},
			},
		},
		{
			name:     "empty criteria lists third page",
			criteria: FilterCriteria{},
			page:     NewPageRequest(3),
			expected: Request{
				Action: ActionGetIDs,
				Params: map[string]any{"offset": 100, "limit": 50},
			},
		},
		{
			name:     "name only ignores page",
			criteria: FilterCriteria{Name: "Shampoo"},
			page:     NewPageRequest(7),
			expected: Request{
				Action: ActionFilter,
				Params: map[string]any{"product": "Shampoo"},
			},
		},
		{
			name:     "price is coerced to float",
			criteria: FilterCriteria{Price: "17500.0"},
			page:     NewPageRequest(1),
			expected: Request{
				Action: ActionFilter,
				Params: map[string]any{"price": 17500.0},
			},
		},
		{
			name:     "price with surrounding whitespace",
			criteria: FilterCriteria{Price: " 42 "},
			page:     NewPageRequest(1),
			expected: Request{
				Action: ActionFilter,
				Params: map[string]any{"price": 42.0},
			},
		},
		{
			name:     "all fields",
			criteria: FilterCriteria{Name: "Ring", Price: "9.5", Brand: "Piaget"},
			page:     NewPageRequest(2),
			expected: Request{
				Action: ActionFilter,
				Params: map[string]any{"product": "Ring", "price": 9.5, "brand": "Piaget"},
			},
		},
		{
			name:     "brand only",
			criteria: FilterCriteria{Brand: "Cartier"},
			page:     NewPageRequest(1),
			expected: Request{
				Action: ActionFilter,
				Params: map[string]any{"brand": "Cartier"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.criteria, tt.page)
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Build() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestBuild_InvalidPrice(t *testing.T) {
	tests := []string{"abc", "12abc", "NaN", "Inf", "-Infinity", "1,5", " "}

	for _, price := range tests {
		t.Run(price, func(t *testing.T) {
			_, err := Build(FilterCriteria{Name: "Ring", Price: price}, NewPageRequest(1))
			if err == nil {
				t.Fatalf("Build() with price %q should fail", price)
			}
			if !errors.Is(err, ErrInvalidFilter) {
				t.Errorf("error = %v, want ErrInvalidFilter", err)
			}
		})
	}
}

func TestBuild_JSONBody(t *testing.T) {
	req, err := Build(FilterCriteria{}, NewPageRequest(1))
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"action":"get_ids","params":{"limit":50,"offset":0}}`
	if string(body) != expected {
		t.Errorf("body = %s, want %s", body, expected)
	}
}

func TestBuildDetails(t *testing.T) {
	req := BuildDetails([]ProductID{"a", "b"})

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"action":"get_items","params":{"ids":["a","b"]}}`
	if string(body) != expected {
		t.Errorf("body = %s, want %s", body, expected)
	}
}

func TestPageRequest(t *testing.T) {
	tests := []struct {
		name       string
		pageNumber int
		offset     int
		number     int
	}{
		{"first page", 1, 0, 1},
		{"second page", 2, 50, 2},
		{"tenth page", 10, 450, 10},
		{"zero clamps to first", 0, 0, 1},
		{"negative clamps to first", -4, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPageRequest(tt.pageNumber)
			if p.Offset != tt.offset {
				t.Errorf("Offset = %d, want %d", p.Offset, tt.offset)
			}
			if p.Limit != PageSize {
				t.Errorf("Limit = %d, want %d", p.Limit, PageSize)
			}
			if p.Number() != tt.number {
				t.Errorf("Number() = %d, want %d", p.Number(), tt.number)
			}
		})
	}
}

func TestNextPrevPage(t *testing.T) {
	first := NewPageRequest(1)

	if got := PrevPage(first); got != first {
		t.Errorf("PrevPage(first) = %+v, want %+v", got, first)
	}

	second := NextPage(first)
	if second.Offset != 50 {
		t.Errorf("NextPage(first).Offset = %d, want 50", second.Offset)
	}

	if got := PrevPage(second); got != first {
		t.Errorf("PrevPage(second) = %+v, want %+v", got, first)
	}
}

func TestFilterCriteria_IsEmpty(t *testing.T) {
	if !(FilterCriteria{}).IsEmpty() {
		t.Error("zero criteria should be empty")
	}
	if (FilterCriteria{Price: "1"}).IsEmpty() {
		t.Error("criteria with price should not be empty")
	}
}
