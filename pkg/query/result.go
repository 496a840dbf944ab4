package query

import (
	"bytes"
	"encoding/json"
	"iter"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Entry holds the metrics of one element of the response array. The values
// keep the number literal sent by the service, so large hit counts survive
// unchanged; numeric strings are reduced to their number literal.
type Entry struct {
	Index     int
	QueryTime json.Number
	TotalHits json.Number
}

// Result is a lazy, single-pass view over a response array. The whole body is
// validated by Parse; elements are decoded one by one while iterating.
type Result struct {
	body     []byte
	consumed atomic.Bool
}

// Parse checks that body is valid JSON whose top-level value is an array.
// Anything else is ErrMalformedResponse and nothing may be extracted from it.
func Parse(body []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, errors.Mark(errors.Wrap(err, "decode body"), ErrMalformedResponse)
	}
	if trimmed[0] != '[' {
		return nil, errors.Mark(errors.Newf("top-level value is %s, not an array", jsonKind(trimmed[0])), ErrMalformedResponse)
	}
	return &Result{body: trimmed}, nil
}

// Entries yields one (Entry, error) pair per array element, in response
// order. A non-nil error wraps ErrEntryExtraction and only concerns that
// element. The sequence can be ranged over once; later attempts yield a
// single ErrResultConsumed.
func (r *Result) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if r == nil || !r.consumed.CompareAndSwap(false, true) {
			yield(Entry{Index: -1}, ErrResultConsumed)
			return
		}

		dec := json.NewDecoder(bytes.NewReader(r.body))
		if _, err := dec.Token(); err != nil {
			yield(Entry{Index: -1}, errors.Mark(errors.Wrap(err, "read array start"), ErrMalformedResponse))
			return
		}
		for i := 0; dec.More(); i++ {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				// unreachable for bodies that passed json.Valid
				yield(Entry{Index: i}, errors.Mark(errors.Wrapf(err, "element %d", i), ErrMalformedResponse))
				return
			}
			if !yield(decodeEntry(i, raw)) {
				return
			}
		}
	}
}

type wireEntry struct {
	Data *wireData `json:"data"`
}

type wireData struct {
	ESQueryTime *number `json:"es_query_time"`
	TotalHits   *number `json:"total_hits"`
}

func decodeEntry(i int, raw json.RawMessage) (Entry, error) {
	e := Entry{Index: i}

	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return e, errors.Mark(errors.Wrapf(err, "entry %d", i), ErrEntryExtraction)
	}
	if w.Data == nil {
		return e, errors.Mark(errors.Newf("entry %d: missing data", i), ErrEntryExtraction)
	}
	if w.Data.ESQueryTime == nil {
		return e, errors.Mark(errors.Newf("entry %d: missing data.es_query_time", i), ErrEntryExtraction)
	}
	if w.Data.TotalHits == nil {
		return e, errors.Mark(errors.Newf("entry %d: missing data.total_hits", i), ErrEntryExtraction)
	}

	e.QueryTime = json.Number(*w.Data.ESQueryTime)
	e.TotalHits = json.Number(*w.Data.TotalHits)
	return e, nil
}

// number accepts a JSON number or a string holding a finite number and keeps
// it as a JSON number literal.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	lit := string(b)
	quoted := len(b) > 0 && b[0] == '"'
	if quoted {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		lit = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return errors.Newf("value %s is not numeric", b)
	}
	if quoted && !isNumberLiteral(lit) {
		// "+12", "0x1p4" and friends parse but are not JSON numbers.
		lit = strconv.FormatFloat(f, 'f', -1, 64)
	}
	*n = number(lit)
	return nil
}

func isNumberLiteral(s string) bool {
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}

func jsonKind(c byte) string {
	switch c {
	case '{':
		return "an object"
	case '"':
		return "a string"
	case 't', 'f':
		return "a boolean"
	case 'n':
		return "null"
	default:
		return "a number"
	}
}
