// Package catalog defines the catalog API data model and the pure parts of
// the product-retrieval workflow: request building and identifier
// de-duplication.
package catalog

// PageSize is the fixed number of identifiers requested per listing page.
const PageSize = 50

// Action names understood by the catalog API.
type Action string

const (
	// ActionGetIDs lists product identifiers by offset and limit.
	ActionGetIDs Action = "get_ids"

	// ActionFilter lists product identifiers matching field filters.
	ActionFilter Action = "filter"

	// ActionGetItems expands identifiers into product records.
	ActionGetItems Action = "get_items"
)

// ProductID is an opaque product identifier.
type ProductID string

// Product is a single catalog record.
type Product struct {
	ID    ProductID `json:"id"`
	Name  string    `json:"product"`
	Price float64   `json:"price"`
	Brand string    `json:"brand"`
}

// FilterCriteria holds raw filter input. Any subset of fields may be set;
// an empty string means the field is not filtered on.
type FilterCriteria struct {
	Name  string
	Price string
	Brand string
}

// IsEmpty reports whether no filter field is set.
func (c FilterCriteria) IsEmpty() bool {
	return c.Name == "" && c.Price == "" && c.Brand == ""
}

// PageRequest selects one listing page.
type PageRequest struct {
	Offset int
	Limit  int
}

// NewPageRequest returns the request for a 1-based page number.
// Page numbers below 1 are treated as page 1.
func NewPageRequest(pageNumber int) PageRequest {
	if pageNumber < 1 {
		pageNumber = 1
	}
	return PageRequest{
		Offset: (pageNumber - 1) * PageSize,
		Limit:  PageSize,
	}
}

// Number returns the 1-based page number.
func (p PageRequest) Number() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// NextPage returns the page after p.
func NextPage(p PageRequest) PageRequest {
	return NewPageRequest(p.Number() + 1)
}

// PrevPage returns the page before p, never going below page 1.
func PrevPage(p PageRequest) PageRequest {
	return NewPageRequest(p.Number() - 1)
}

// Request is the JSON body sent to the catalog API.
type Request struct {
	Action Action         `json:"action"`
	Params map[string]any `json:"params"`
}
