package query

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidRequest is returned when a request cannot be built.
	ErrInvalidRequest = errors.New("query: invalid request")

	// ErrMalformedResponse marks a body that is not JSON or not a JSON array.
	// It aborts extraction for the whole response.
	ErrMalformedResponse = errors.New("query: malformed response")

	// ErrEntryExtraction marks a single array element without usable
	// data.es_query_time / data.total_hits. Other elements are unaffected.
	ErrEntryExtraction = errors.New("query: entry extraction failed")

	// ErrResultConsumed is yielded when a Result is iterated a second time.
	ErrResultConsumed = errors.New("query: result already consumed")
)
