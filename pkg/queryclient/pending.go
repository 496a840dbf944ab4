package queryclient

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/samvad-query-probe/internal/domain"
	"github.com/samvad-hq/samvad-query-probe/pkg/query"
)

// State is the lifecycle position of a submitted request.
type State int32

const (
	StatePending State = iota
	StateCompleted
)

func (s State) String() string {
	if s == StateCompleted {
		return "completed"
	}
	return "pending"
}

// OutcomeKind says which branch of the completion handling ran.
type OutcomeKind string

const (
	OutcomeMetrics           OutcomeKind = "metrics"
	OutcomeMalformedResponse OutcomeKind = "malformed_response"
	OutcomeErrorBody         OutcomeKind = "error_body"
	OutcomeTransportFailure  OutcomeKind = "transport_failure"
)

// Outcome is the result of one completed request.
type Outcome struct {
	RequestID  string
	Kind       OutcomeKind
	StatusCode int
	// Entries are the entries that produced metric records, in response order.
	Entries []query.Entry
	// EntryErrors holds one ErrEntryExtraction per skipped entry.
	EntryErrors []error
	// Err is set for every kind except OutcomeMetrics.
	Err     error
	Records []domain.Record
	Elapsed time.Duration
}

// Partial reports whether some, but not necessarily all, entries failed extraction.
func (o Outcome) Partial() bool {
	return o.Kind == OutcomeMetrics && len(o.EntryErrors) > 0
}

// Pending is the handle of one submitted request. It completes exactly once.
type Pending struct {
	id      string
	req     query.Request
	state   atomic.Int32
	done    chan struct{}
	outcome Outcome
}

func newPending(id string, req query.Request) *Pending {
	return &Pending{id: id, req: req, done: make(chan struct{})}
}

func (p *Pending) ID() string             { return p.id }
func (p *Pending) Request() query.Request { return p.req }
func (p *Pending) State() State           { return State(p.state.Load()) }

// Done is closed once the request has completed.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the request completes or ctx ends. A ctx error leaves the
// request running.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the outcome if the request has completed.
func (p *Pending) Outcome() (Outcome, bool) {
	select {
	case <-p.done:
		return p.outcome, true
	default:
		return Outcome{}, false
	}
}

func (p *Pending) finish(out Outcome) {
	if !p.state.CompareAndSwap(int32(StatePending), int32(StateCompleted)) {
		return
	}
	p.outcome = out
	close(p.done)
}
