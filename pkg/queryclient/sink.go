package queryclient

import (
	"io"
	"sync"

	"github.com/samvad-hq/samvad-query-probe/internal/domain"
	"github.com/samvad-hq/samvad-query-probe/internal/logger"
)

// Sink receives one line per emitted record. Implementations must be safe
// for use by concurrent clients; a single Client never calls Write concurrently.
type Sink interface {
	Write(line string)
}

// RecordSink is implemented by sinks that want the whole record instead of
// just its line.
type RecordSink interface {
	Sink
	WriteRecord(rec domain.Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string)

func (f SinkFunc) Write(line string) { f(line) }

func deliver(s Sink, rec domain.Record) {
	if rs, ok := s.(RecordSink); ok {
		rs.WriteRecord(rec)
		return
	}
	s.Write(rec.Line)
}

// WriterSink writes each line followed by a newline to w. Write errors are dropped.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line+"\n")
}

// LoggerSink turns records into structured log entries. Error records are
// logged at error level, entry extraction failures at warn level.
type LoggerSink struct {
	log logger.Logger
}

func NewLoggerSink(log logger.Logger) *LoggerSink {
	return &LoggerSink{log: logger.Ensure(log)}
}

func (s *LoggerSink) Write(line string) {
	s.log.InfoObj("query record", "record", line)
}

func (s *LoggerSink) WriteRecord(rec domain.Record) {
	switch rec.Kind {
	case domain.RecordMetric:
		s.log.InfoObj("query record", "record", rec)
	case domain.RecordEntryError:
		s.log.WarnObj("query record", "record", rec)
	default:
		s.log.ErrorObj("query record", "record", rec)
	}
}

// MultiSink forwards every record to each of its sinks in order.
type MultiSink []Sink

func (m MultiSink) Write(line string) {
	for _, s := range m {
		if s != nil {
			s.Write(line)
		}
	}
}

func (m MultiSink) WriteRecord(rec domain.Record) {
	for _, s := range m {
		if s != nil {
			deliver(s, rec)
		}
	}
}
