package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-query-probe/internal/domain"
)

// Event represents a query record forwarded downstream.
type Event struct {
	RequestID string            `json:"request_id"`
	Endpoint  string            `json:"endpoint"`
	Kind      domain.RecordKind `json:"kind"`
	Index     int               `json:"index"`
	Line      string            `json:"line"`
	EmittedAt time.Time         `json:"emitted_at"`
}

// NewEvent constructs an Event for the given record.
func NewEvent(rec domain.Record) Event {
	return Event{
		RequestID: rec.RequestID,
		Endpoint:  rec.Endpoint,
		Kind:      rec.Kind,
		Index:     rec.Index,
		Line:      rec.Line,
		EmittedAt: time.Now().UTC(),
	}
}

// attributes are attached as message attributes by queue-style publishers.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{"kind": string(e.Kind)}
	if e.RequestID != "" {
		attrs["request_id"] = e.RequestID
	}
	if e.Endpoint != "" {
		attrs["endpoint"] = e.Endpoint
	}
	return attrs
}
