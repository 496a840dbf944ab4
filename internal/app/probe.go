package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/samvad-hq/samvad-query-probe/internal/config"
	"github.com/samvad-hq/samvad-query-probe/internal/logger"
	"github.com/samvad-hq/samvad-query-probe/internal/storage"
	"github.com/samvad-hq/samvad-query-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-query-probe/pkg/publishers"
	"github.com/samvad-hq/samvad-query-probe/pkg/query"
	"github.com/samvad-hq/samvad-query-probe/pkg/queryclient"
)

// Probe is the query probe runtime. It owns the query client, the sinks its
// records flow into, the run history and the optional metrics endpoint.
type Probe struct {
	cfg     *config.Config
	client  *queryclient.Client
	fanout  *publishers.Fanout
	store   storage.Store
	log     logger.Logger
	metrics *http.Server
	tracing *sdktrace.TracerProvider
}

// Summary counts the outcomes of one run.
type Summary struct {
	Submitted   int
	Completed   int
	Outcomes    map[queryclient.OutcomeKind]int
	Metrics     int
	EntryErrors int
}

// NewProbe builds a probe from config. Records are written line by line to
// out; a nil out routes them through the logger instead.
func NewProbe(ctx context.Context, cfg *config.Config, log logger.Logger, out io.Writer) (*Probe, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log = logger.Ensure(log)

	var sinks queryclient.MultiSink
	if out != nil {
		sinks = append(sinks, queryclient.NewWriterSink(out))
	} else {
		sinks = append(sinks, queryclient.NewLoggerSink(log))
	}

	var fanout *publishers.Fanout
	if cfg.SinksFile != "" {
		publisherReg, err := publishers.LoadRegistry(cfg.SinksFile)
		if err != nil {
			return nil, fmt.Errorf("load sinks registry: %w", err)
		}
		enabled := publisherReg.Enabled()
		pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
		if err != nil {
			return nil, fmt.Errorf("build publishers: %w", err)
		}
		fanout = publishers.NewFanout(pubClients)
		summaries := make([]map[string]string, 0, len(enabled))
		for _, pubCfg := range enabled {
			summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
		}
		log.InfoObj("sinks registry loaded", "publishers_meta", map[string]any{
			"count":      len(summaries),
			"publishers": summaries,
		})
		sinks = append(sinks, publishers.NewSink(fanout, cfg.ForwardTimeout, log))
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.HistoryPath, storage.Options{
		RunTTL:          cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.HistoryPath,
	})

	tp, err := newTracerProvider(cfg.TraceExporter, cfg.AppName, os.Stderr)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	transport := httpclient.NewRestyClient(httpclient.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
	})
	opts := []queryclient.Option{queryclient.WithLogger(log)}
	if tp != nil {
		opts = append(opts, queryclient.WithTracer(tp.Tracer(tracerName)))
	}
	client := queryclient.New(transport, sinks, opts...)

	p := &Probe{
		cfg:     cfg,
		client:  client,
		fanout:  fanout,
		store:   store,
		log:     log,
		tracing: tp,
	}
	if cfg.MetricsAddr != "" {
		p.startMetrics(cfg.MetricsAddr)
	}
	return p, nil
}

// Run submits the named presets from the queries file, or every enabled one
// when names is empty, and waits for all of them to complete.
func (p *Probe) Run(ctx context.Context, names []string) (Summary, error) {
	if p == nil || p.client == nil {
		return Summary{}, fmt.Errorf("probe is not initialized")
	}

	reg, err := query.LoadPresets(p.cfg.QueriesFile)
	if err != nil {
		return Summary{}, fmt.Errorf("load queries: %w", err)
	}
	presets, err := reg.Select(names)
	if err != nil {
		return Summary{}, err
	}
	if len(presets) == 0 {
		p.log.WarnObj("no queries selected; nothing to do", "queries_file", p.cfg.QueriesFile)
		return Summary{Outcomes: map[queryclient.OutcomeKind]int{}}, nil
	}

	reqs := make([]query.Request, 0, len(presets))
	for _, preset := range presets {
		req, err := preset.Request()
		if err != nil {
			return Summary{}, fmt.Errorf("query %q: %w", preset.Name, err)
		}
		reqs = append(reqs, req)
	}
	return p.submit(ctx, reqs)
}

// RunRequest submits a single ad-hoc request and waits for it.
func (p *Probe) RunRequest(ctx context.Context, req query.Request) (Summary, error) {
	if p == nil || p.client == nil {
		return Summary{}, fmt.Errorf("probe is not initialized")
	}
	return p.submit(ctx, []query.Request{req})
}

func (p *Probe) submit(ctx context.Context, reqs []query.Request) (Summary, error) {
	start := time.Now()
	p.log.InfoObj("probe run starting", "probe_state", map[string]any{
		"queries":    len(reqs),
		"serial":     p.cfg.Serial,
		"base_url":   p.cfg.BaseURL,
		"publishers": p.fanout.Size(),
	})

	sum := Summary{Outcomes: make(map[queryclient.OutcomeKind]int)}
	var errs []error
	collect := func(pending *queryclient.Pending) {
		out, err := pending.Wait(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("wait %s: %w", pending.ID(), err))
			return
		}
		sum.Completed++
		sum.Outcomes[out.Kind]++
		sum.Metrics += len(out.Entries)
		sum.EntryErrors += len(out.EntryErrors)
		p.record(pending.Request(), out)
	}

	if p.cfg.Serial {
		for _, req := range reqs {
			sum.Submitted++
			collect(p.client.Submit(ctx, req))
		}
	} else {
		pending := make([]*queryclient.Pending, 0, len(reqs))
		for _, req := range reqs {
			sum.Submitted++
			pending = append(pending, p.client.Submit(ctx, req))
		}
		for _, pd := range pending {
			collect(pd)
		}
	}

	p.log.InfoObj("probe run completed", "probe_summary", map[string]any{
		"submitted":    sum.Submitted,
		"completed":    sum.Completed,
		"outcomes":     sum.Outcomes,
		"metrics":      sum.Metrics,
		"entry_errors": sum.EntryErrors,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return sum, errors.Join(errs...)
}

// Close stops the metrics endpoint, flushes spans and releases publisher
// connections.
func (p *Probe) Close() error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
		}
	}
	if p.tracing != nil {
		if err := p.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if err := p.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// record compares out with the previous run of the same request and stores it.
// History failures are logged, never returned.
func (p *Probe) record(req query.Request, out queryclient.Outcome) {
	if p.store == nil {
		return
	}
	key := req.String()

	run := storage.Run{
		Key:         key,
		RequestID:   out.RequestID,
		Outcome:     string(out.Kind),
		StatusCode:  out.StatusCode,
		EntryErrors: len(out.EntryErrors),
	}
	for _, e := range out.Entries {
		run.Metrics = append(run.Metrics, storage.Metric{QueryTime: float64Of(e.QueryTime), TotalHits: float64Of(e.TotalHits)})
	}

	prev, found, err := p.store.LastRun(key)
	if err != nil {
		p.log.ErrorObj("history lookup failed", "error", err)
	} else if found && len(prev.Metrics) > 0 && len(run.Metrics) > 0 {
		p.log.InfoObj("query time compared with previous run", "query_history", map[string]any{
			"request":             key,
			"previous_request_id": prev.RequestID,
			"previous_query_time": prev.TotalQueryTime(),
			"query_time":          run.TotalQueryTime(),
			"delta":               run.TotalQueryTime() - prev.TotalQueryTime(),
			"previous_run_at":     prev.CompletedAt,
		})
	}

	if err := p.store.SaveRun(run); err != nil {
		p.log.ErrorObj("history save failed", "error", err)
	}
}

// float64Of converts an entry value for history. Entry values are finite
// numbers, so the conversion cannot fail.
func float64Of(n json.Number) float64 {
	f, _ := n.Float64()
	return f
}

func (p *Probe) startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	p.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		p.log.InfoObj("metrics server listening", "metrics_addr", addr)
		if err := p.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.ErrorObj("metrics server failed", "error", err)
		}
	}()
}
