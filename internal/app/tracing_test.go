package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewTracerProviderNone(t *testing.T) {
	for _, kind := range []string{"", "none"} {
		tp, err := newTracerProvider(kind, "svc", nil)
		if err != nil {
			t.Fatalf("kind %q: %v", kind, err)
		}
		if tp != nil {
			t.Fatalf("kind %q: expected no provider", kind)
		}
	}
}

func TestNewTracerProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	tp, err := newTracerProvider("stdout", "svc-under-test", &buf)
	if err != nil {
		t.Fatalf("newTracerProvider: %v", err)
	}
	_, span := tp.Tracer(tracerName).Start(context.Background(), "queryclient.submit")
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"Name": "queryclient.submit"`) && !strings.Contains(out, `"Name":"queryclient.submit"`) {
		t.Fatalf("span not exported: %s", out)
	}
	if !strings.Contains(out, "svc-under-test") {
		t.Fatalf("service name missing from export: %s", out)
	}
}

func TestNewTracerProviderUnknown(t *testing.T) {
	if _, err := newTracerProvider("zipkin", "svc", nil); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
