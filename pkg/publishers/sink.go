package publishers

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-query-probe/internal/domain"
	"github.com/samvad-hq/samvad-query-probe/internal/logger"
)

// Sink forwards query records to a Fanout. It satisfies the query client's
// sink contract: writes never fail, delivery errors are only logged.
type Sink struct {
	fanout  *Fanout
	timeout time.Duration
	log     logger.Logger
}

// NewSink wraps fanout. timeout bounds each delivery; zero means 5s.
func NewSink(fanout *Fanout, timeout time.Duration, log logger.Logger) *Sink {
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds * time.Second
	}
	return &Sink{fanout: fanout, timeout: timeout, log: logger.Ensure(log)}
}

func (s *Sink) Write(line string) {
	s.WriteRecord(domain.Record{Index: -1, Line: line})
}

func (s *Sink) WriteRecord(rec domain.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	delivered, err := s.fanout.Publish(ctx, NewEvent(rec))
	if err != nil {
		s.log.ErrorObj("record forwarding failed", "forward_error", map[string]any{
			"request_id": rec.RequestID,
			"kind":       rec.Kind,
			"delivered":  delivered,
			"publishers": s.fanout.Size(),
			"error":      err.Error(),
		})
	}
}
