package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistryJSONWithAllTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sinks.json")
	raw := `{"publishers":[
  {"id":" q ","type":"SQS","sqs":{"uri":"http://localhost:4566/000000000000/records","region":"eu-north-1"}},
  {"id":"t","type":"sns","sns":{"topic_arn":"arn:aws:sns:eu-north-1:000000000000:records","region":"eu-north-1"}},
  {"id":"g","type":"pubsub","pubsub":{"project_id":"p","topic":"records"}},
  {"id":"h","type":"http","http":{"url":"https://example.com","headers":{" X-A ":" 1 ","":"drop"}}}
]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 4 {
		t.Fatalf("expected 4 publishers, got %d", len(reg.All()))
	}
	q, ok := reg.ByID("q")
	if !ok || q.Type != TypeSQS || !q.EnabledValue() {
		t.Fatalf("sqs entry not normalized: %#v", q)
	}
	h, _ := reg.ByID("h")
	if h.HTTP.Method != httpDefaultMethod || h.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", h.HTTP)
	}
	if len(h.HTTP.Headers) != 1 || h.HTTP.Headers["X-A"] != "1" {
		t.Fatalf("headers not sanitized: %#v", h.HTTP.Headers)
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sinks.yaml")
	raw := `
publishers:
  - id: a
    type: http
    http: {url: https://example.com}
  - id: a
    type: http
    http: {url: https://example.com/2}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfigCloudTypes(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}},
		{ID: "t", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "r"}},
		{ID: "g", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}},
		{ID: "x", Type: "ftp"},
		{Type: TypeHTTP},
	}
	for _, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("expected validation error for %#v", cfg)
		}
	}
}
