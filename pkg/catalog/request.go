package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned when filter input cannot be sent upstream.
var ErrInvalidFilter = errors.New("invalid filter")

// Build selects the action for the given criteria and page.
//
// Filtering and pagination are mutually exclusive: when any criteria field is
// set the filter action is used and page is ignored. Otherwise a listing
// request for page is built.
func Build(criteria FilterCriteria, page PageRequest) (Request, error) {
	if criteria.IsEmpty() {
		return Request{
			Action: ActionGetIDs,
			Params: map[string]any{
				"offset": page.Offset,
				"limit":  page.Limit,
			},
		}, nil
	}

	params := make(map[string]any, 3)
	if criteria.Name != "" {
		params["product"] = criteria.Name
	}
	if criteria.Price != "" {
		price, err := parsePrice(criteria.Price)
		if err != nil {
			return Request{}, err
		}
		params["price"] = price
	}
	if criteria.Brand != "" {
		params["brand"] = criteria.Brand
	}

	return Request{Action: ActionFilter, Params: params}, nil
}

// BuildDetails builds the detail hydration request for ids.
func BuildDetails(ids []ProductID) Request {
	return Request{
		Action: ActionGetItems,
		Params: map[string]any{"ids": ids},
	}
}

// parsePrice accepts finite decimal numbers only.
func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price %q is not a number", ErrInvalidFilter, raw)
	}
	return price, nil
}
