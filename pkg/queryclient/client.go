package queryclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samvad-hq/samvad-query-probe/internal/domain"
	"github.com/samvad-hq/samvad-query-probe/internal/logger"
	"github.com/samvad-hq/samvad-query-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-query-probe/pkg/query"
)

var (
	// ErrTransport marks a response with a status other than 200.
	ErrTransport = errors.New("queryclient: non-success status")

	// ErrTransportFailure marks a request that never got a response.
	ErrTransportFailure = errors.New("queryclient: transport failure")
)

// Option configures a Client.
type Option func(*Client)

func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = logger.Ensure(log) }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) { c.headers = h }
}

// WithIDGenerator replaces the KSUID request id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Client submits queries to the aggregation service and reports each
// response to its sink. Requests run independently; only their completion
// handling is serialized, so the records of one response reach the sink
// back to back.
type Client struct {
	transport httpclient.Client
	sink      Sink
	log       logger.Logger
	tracer    trace.Tracer
	headers   map[string]string
	newID     func() string

	mu sync.Mutex
	wg sync.WaitGroup
}

// New builds a Client. A nil sink discards records.
func New(transport httpclient.Client, sink Sink, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		sink:      sink,
		log:       logger.NopLogger{},
		tracer:    otel.Tracer("github.com/samvad-hq/samvad-query-probe/pkg/queryclient"),
		newID:     func() string { return ksuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts one GET for req and returns at once. There is no retry.
// The request ends when the transport answers, or when ctx or the
// transport's own timeout gives up; with neither set it may never complete.
func (c *Client) Submit(ctx context.Context, req query.Request) *Pending {
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPending(c.newID(), req)

	inFlight.Inc()
	c.wg.Add(1)
	go c.run(ctx, p)
	return p
}

// Wait blocks until every submitted request has completed.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context, p *Pending) {
	defer c.wg.Done()
	defer inFlight.Dec()

	ctx, span := c.tracer.Start(ctx, "queryclient.submit", trace.WithAttributes(
		attribute.String("query.request_id", p.id),
		attribute.String("query.endpoint", p.req.Path()),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.transport.Get(ctx, p.req.Path(), p.req.Params(), c.headers)
	out := c.complete(p, resp, err)
	out.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("query.outcome", string(out.Kind)),
		attribute.Int("http.status_code", out.StatusCode),
		attribute.Int("query.entries", len(out.Entries)),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Kind))
	}
	observe(out)

	c.log.InfoObj("query completed", "query_result", map[string]any{
		"request_id":    p.id,
		"endpoint":      p.req.Path(),
		"outcome":       out.Kind,
		"status":        out.StatusCode,
		"entries":       len(out.Entries),
		"entry_errors":  len(out.EntryErrors),
		"elapsed_ms":    out.Elapsed.Milliseconds(),
		"records_count": len(out.Records),
	})
	p.finish(out)
}

// complete runs the completion contract for one request.
func (c *Client) complete(p *Pending, resp httpclient.Response, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &recorder{
		sink: c.sink,
		base: domain.Record{RequestID: p.id, Endpoint: p.req.Path(), Index: -1},
	}
	out := Outcome{RequestID: p.id}

	switch {
	case err != nil:
		out.Kind = OutcomeTransportFailure
		out.Err = errors.Mark(errors.Wrapf(err, "GET %s", p.req), ErrTransportFailure)
		rec.transportFailure(err)

	case resp.StatusCode() != http.StatusOK:
		out.Kind = OutcomeErrorBody
		out.StatusCode = resp.StatusCode()
		out.Err = errors.Mark(errors.Newf("GET %s returned status %d", p.req, resp.StatusCode()), ErrTransport)
		rec.errorBody(resp.Body())

	default:
		out.StatusCode = resp.StatusCode()
		body := resp.Body()
		c.log.DebugObj("query response received", "response_meta", map[string]any{
			"request_id": p.id,
			"endpoint":   p.req.Path(),
			"bytes":      len(body),
		})

		res, perr := query.Parse(body)
		if perr != nil {
			out.Kind = OutcomeMalformedResponse
			out.Err = perr
			rec.malformed(perr)
			break
		}

		out.Kind = OutcomeMetrics
		for e, eerr := range res.Entries() {
			if eerr != nil {
				out.EntryErrors = append(out.EntryErrors, eerr)
				rec.entryError(e.Index, eerr)
				continue
			}
			out.Entries = append(out.Entries, e)
			rec.metric(e)
		}
	}

	out.Records = rec.records
	return out
}
