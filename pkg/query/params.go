package query

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Endpoints served by the aggregation service.
const (
	EndpointBarChart      = "/barchart"
	EndpointHitList       = "/hitlist"
	EndpointTimelineAggs  = "/timeline/aggs"
	EndpointTimelineTotal = "/timeline/total"
)

// Parameter keys as transmitted on the wire.
const (
	KeySearchQuery     = "searchQuery"
	KeyStartDate       = "startDate"
	KeyEndDate         = "endDate"
	KeyQueryMode       = "queryMode"
	KeyAggField        = "aggField"
	KeyFromIndex       = "fromIndex"
	KeySortField       = "sortField"
	KeySortOrder       = "sortOrder"
	KeyQueryTranslated = "queryTranslated"
)

// QueryMode selects how the service matches the search string.
type QueryMode string

const (
	ModeExact           QueryMode = "exact"
	ModeAnywhere        QueryMode = "anywhere"
	ModeSpanNear        QueryMode = "spanNear"
	ModeSpanNearOrdinal QueryMode = "spanNearOrdinal"
)

// Valid reports whether m is one of the known modes.
func (m QueryMode) Valid() bool {
	switch m {
	case ModeExact, ModeAnywhere, ModeSpanNear, ModeSpanNearOrdinal:
		return true
	}
	return false
}

// SortOrder is the hitlist sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Params enumerates the query parameters the service understands. Zero values
// are left off the wire. Values are passed through as-is; the transport does
// the url-encoding.
type Params struct {
	SearchQuery     string            `json:"search_query" yaml:"search_query"`
	StartDate       string            `json:"start_date" yaml:"start_date"`
	EndDate         string            `json:"end_date" yaml:"end_date"`
	QueryMode       QueryMode         `json:"query_mode" yaml:"query_mode"`
	AggField        string            `json:"agg_field" yaml:"agg_field"`
	FromIndex       *int              `json:"from_index" yaml:"from_index"`
	SortField       string            `json:"sort_field" yaml:"sort_field"`
	SortOrder       SortOrder         `json:"sort_order" yaml:"sort_order"`
	QueryTranslated *bool             `json:"query_translated" yaml:"query_translated"`
	Extra           map[string]string `json:"extra" yaml:"extra"`
}

// Values flattens p into wire parameters. Recognized fields win over Extra.
func (p Params) Values() map[string]string {
	out := make(map[string]string, 9+len(p.Extra))
	for k, v := range p.Extra {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = v
		}
	}

	set := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	set(KeySearchQuery, p.SearchQuery)
	set(KeyStartDate, p.StartDate)
	set(KeyEndDate, p.EndDate)
	set(KeyQueryMode, string(p.QueryMode))
	set(KeyAggField, p.AggField)
	set(KeySortField, p.SortField)
	set(KeySortOrder, string(p.SortOrder))
	if p.FromIndex != nil {
		out[KeyFromIndex] = strconv.Itoa(*p.FromIndex)
	}
	if p.QueryTranslated != nil {
		out[KeyQueryTranslated] = strconv.FormatBool(*p.QueryTranslated)
	}
	return out
}

// Validate checks the enumerated fields. The client never calls it; presets
// and the CLI do.
func (p Params) Validate() error {
	if p.QueryMode != "" && !p.QueryMode.Valid() {
		return errors.Mark(errors.Newf("unknown query mode %q", p.QueryMode), ErrInvalidRequest)
	}
	if p.SortOrder != "" && p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		return errors.Mark(errors.Newf("unknown sort order %q", p.SortOrder), ErrInvalidRequest)
	}
	if p.FromIndex != nil && *p.FromIndex < 0 {
		return errors.Mark(errors.Newf("fromIndex must not be negative, got %d", *p.FromIndex), ErrInvalidRequest)
	}
	return nil
}

// Request builds a request for endpoint from p.
func (p Params) Request(endpoint string) (Request, error) {
	return New(endpoint, p.Values())
}
