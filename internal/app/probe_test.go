package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-query-probe/internal/config"
	"github.com/samvad-hq/samvad-query-probe/pkg/query"
	"github.com/samvad-hq/samvad-query-probe/pkg/queryclient"
)

// syncBuffer guards a bytes.Buffer written from client goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func newAggregationServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hitlist":
			_, _ = w.Write([]byte(`[{"data":{"es_query_time":12,"total_hits":340}}]`))
		case "/timeline/total":
			_, _ = w.Write([]byte(`[{"data":{"es_query_time":"4","total_hits":9}},{"data":{}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("no such endpoint"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeQueries(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.yaml")
	raw := `
queries:
  - name: hitlist
    endpoint: /hitlist
    params:
      search_query: stad
      query_mode: exact
  - name: total
    endpoint: /timeline/total
  - name: missing
    endpoint: /nowhere
  - name: off
    endpoint: /barchart
    enabled: false
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write queries: %v", err)
	}
	return path
}

func testConfig(baseURL, queries string, serial bool) *config.Config {
	return &config.Config{
		BaseURL:        baseURL,
		UserAgent:      "probe-test",
		RequestTimeout: 5 * time.Second,
		QueriesFile:    queries,
		Serial:         serial,
		ForwardTimeout: time.Second,
	}
}

func TestProbeRunEnabledPresets(t *testing.T) {
	for _, serial := range []bool{false, true} {
		srv := newAggregationServer(t)
		out := &syncBuffer{}
		probe, err := NewProbe(context.Background(), testConfig(srv.URL, writeQueries(t), serial), nil, out)
		if err != nil {
			t.Fatalf("NewProbe: %v", err)
		}

		sum, err := probe.Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("Run(serial=%v): %v", serial, err)
		}
		if sum.Submitted != 3 || sum.Completed != 3 {
			t.Fatalf("serial=%v: submitted/completed = %d/%d", serial, sum.Submitted, sum.Completed)
		}
		if sum.Outcomes[queryclient.OutcomeMetrics] != 2 || sum.Outcomes[queryclient.OutcomeErrorBody] != 1 {
			t.Fatalf("serial=%v: outcomes = %v", serial, sum.Outcomes)
		}
		if sum.Metrics != 2 || sum.EntryErrors != 1 {
			t.Fatalf("serial=%v: metrics/entry errors = %d/%d", serial, sum.Metrics, sum.EntryErrors)
		}

		lines := out.Lines()
		if len(lines) != 4 {
			t.Fatalf("serial=%v: expected 4 sink lines, got %q", serial, lines)
		}
		joined := strings.Join(lines, "\n")
		for _, want := range []string{`{"queryTime":12,"totalHits":340}`, `{"queryTime":4,"totalHits":9}`, "no such endpoint"} {
			if !strings.Contains(joined, want) {
				t.Fatalf("serial=%v: output missing %q:\n%s", serial, want, joined)
			}
		}
		if err := probe.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestProbeRunNamedPresets(t *testing.T) {
	srv := newAggregationServer(t)
	out := &syncBuffer{}
	probe, err := NewProbe(context.Background(), testConfig(srv.URL, writeQueries(t), false), nil, out)
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	defer probe.Close()

	sum, err := probe.Run(context.Background(), []string{"off"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Explicitly named presets run even when disabled.
	if sum.Outcomes[queryclient.OutcomeErrorBody] != 1 {
		t.Fatalf("outcomes = %v", sum.Outcomes)
	}

	if _, err := probe.Run(context.Background(), []string{"unknown"}); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}

func TestProbeRunRequest(t *testing.T) {
	srv := newAggregationServer(t)
	out := &syncBuffer{}
	probe, err := NewProbe(context.Background(), testConfig(srv.URL, "", false), nil, out)
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	defer probe.Close()

	req, err := query.New(query.EndpointHitList, map[string]string{"searchQuery": "stad"})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	sum, err := probe.RunRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("RunRequest: %v", err)
	}
	if sum.Metrics != 1 {
		t.Fatalf("metrics = %d", sum.Metrics)
	}
	if got := out.Lines(); len(got) != 1 || got[0] != `{"queryTime":12,"totalHits":340}` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestProbeRunMissingQueriesFile(t *testing.T) {
	probe, err := NewProbe(context.Background(), testConfig("http://127.0.0.1:1", filepath.Join(t.TempDir(), "none.yaml"), false), nil, &syncBuffer{})
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	if _, err := probe.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for missing queries file")
	}
}

func TestNewProbeForwardsToSinks(t *testing.T) {
	srv := newAggregationServer(t)
	received := make(chan struct{}, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received <- struct{}{}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	sinks := filepath.Join(t.TempDir(), "sinks.yaml")
	if err := os.WriteFile(sinks, []byte("publishers:\n  - id: hook\n    type: http\n    http:\n      url: "+hook.URL+"\n"), 0o644); err != nil {
		t.Fatalf("write sinks: %v", err)
	}
	cfg := testConfig(srv.URL, writeQueries(t), false)
	cfg.SinksFile = sinks

	probe, err := NewProbe(context.Background(), cfg, nil, &syncBuffer{})
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	defer probe.Close()

	if _, err := probe.Run(context.Background(), []string{"hitlist"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	select {
	case <-received:
	default:
		t.Fatalf("http sink did not receive the record")
	}
}

func TestNewProbeNilConfig(t *testing.T) {
	if _, err := NewProbe(context.Background(), nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestProbeRecordsHistory(t *testing.T) {
	srv := newAggregationServer(t)
	cfg := testConfig(srv.URL, writeQueries(t), true)
	cfg.StorageType = "bbolt"
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")

	probe, err := NewProbe(context.Background(), cfg, nil, &syncBuffer{})
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	defer probe.Close()

	for i := 0; i < 2; i++ {
		if _, err := probe.Run(context.Background(), []string{"hitlist", "missing"}); err != nil {
			t.Fatalf("Run #%d: %v", i, err)
		}
	}

	run, found, err := probe.store.LastRun("/hitlist?queryMode=exact&searchQuery=stad")
	if err != nil || !found {
		t.Fatalf("hitlist run not stored, found=%v err=%v", found, err)
	}
	if run.Outcome != string(queryclient.OutcomeMetrics) || run.TotalQueryTime() != 12 {
		t.Fatalf("unexpected hitlist run %+v", run)
	}
	missing, found, err := probe.store.LastRun("/nowhere")
	if err != nil || !found || missing.StatusCode != http.StatusNotFound || len(missing.Metrics) != 0 {
		t.Fatalf("unexpected /nowhere run %+v found=%v err=%v", missing, found, err)
	}
}

func TestTraceExporterWiring(t *testing.T) {
	srv := newAggregationServer(t)
	cfg := testConfig(srv.URL, "", false)
	cfg.TraceExporter = "stdout"
	probe, err := NewProbe(context.Background(), cfg, nil, &syncBuffer{})
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	if probe.tracing == nil {
		t.Fatalf("stdout exporter should install a tracer provider")
	}

	req, err := query.New(query.EndpointHitList, nil)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	if _, err := probe.RunRequest(context.Background(), req); err != nil {
		t.Fatalf("RunRequest: %v", err)
	}
	if err := probe.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cfg.TraceExporter = "zipkin"
	if _, err := NewProbe(context.Background(), cfg, nil, &syncBuffer{}); err == nil {
		t.Fatalf("expected error for unknown trace exporter")
	}
}
