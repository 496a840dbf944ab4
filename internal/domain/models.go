package domain

// RecordKind classifies a line emitted to the sink.
type RecordKind string

const (
	RecordMetric            RecordKind = "metric"
	RecordEntryError        RecordKind = "entry_error"
	RecordMalformedResponse RecordKind = "malformed_response"
	RecordErrorBody         RecordKind = "error_body"
	RecordTransportFailure  RecordKind = "transport_failure"
)

// Record is one emission of a completed request. Line is exactly what a plain
// sink receives; the other fields let richer sinks tag it.
type Record struct {
	RequestID string     `json:"request_id"`
	Endpoint  string     `json:"endpoint"`
	Kind      RecordKind `json:"kind"`
	// Index is the array position for metric and entry_error records, -1 otherwise.
	Index int    `json:"index"`
	Line  string `json:"line"`
}
