package queryclient

import (
	"encoding/json"

	"github.com/samvad-hq/samvad-query-probe/internal/domain"
	"github.com/samvad-hq/samvad-query-probe/pkg/query"
)

type metricLine struct {
	QueryTime json.Number `json:"queryTime"`
	TotalHits json.Number `json:"totalHits"`
}

type entryErrorLine struct {
	EntryError struct {
		Index  int    `json:"index"`
		Reason string `json:"reason"`
	} `json:"entryError"`
}

type malformedLine struct {
	MalformedResponse string `json:"malformedResponse"`
}

type transportFailureLine struct {
	TransportFailure string `json:"transportFailure"`
}

// recorder collects the records of one completion and hands them to the sink.
type recorder struct {
	sink    Sink
	base    domain.Record
	records []domain.Record
}

func (r *recorder) emit(kind domain.RecordKind, index int, line string) {
	rec := r.base
	rec.Kind = kind
	rec.Index = index
	rec.Line = line
	r.records = append(r.records, rec)
	if r.sink != nil {
		deliver(r.sink, rec)
	}
}

func (r *recorder) metric(e query.Entry) {
	r.emit(domain.RecordMetric, e.Index, mustJSON(metricLine{QueryTime: e.QueryTime, TotalHits: e.TotalHits}))
}

func (r *recorder) entryError(index int, err error) {
	var l entryErrorLine
	l.EntryError.Index = index
	l.EntryError.Reason = err.Error()
	r.emit(domain.RecordEntryError, index, mustJSON(l))
}

func (r *recorder) malformed(err error) {
	r.emit(domain.RecordMalformedResponse, -1, mustJSON(malformedLine{MalformedResponse: err.Error()}))
}

func (r *recorder) errorBody(body []byte) {
	r.emit(domain.RecordErrorBody, -1, string(body))
}

func (r *recorder) transportFailure(err error) {
	r.emit(domain.RecordTransportFailure, -1, mustJSON(transportFailureLine{TransportFailure: err.Error()}))
}

// mustJSON marshals the fixed line shapes above, which cannot fail.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
