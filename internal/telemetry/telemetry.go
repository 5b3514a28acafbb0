// Package telemetry persists one durable record per run for later audit
// and evaluation. A logging failure is reported to the caller but must
// never take down a run that already produced a reply.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/retainloop/churn-triage-pipeline/internal/store"
)

// ErrLogging wraps any telemetry write failure. Callers surface it on a
// side channel; they do not roll back the reply.
var ErrLogging = errors.New("telemetry: write failed")

// RunSink is the durable destination for run records.
type RunSink interface {
	LogRun(ctx context.Context, rec store.RunRecord) error
}

// Logger writes run records to the relational sink and, when configured,
// publishes a summary event to Kafka.
type Logger struct {
	sink     RunSink
	producer *Producer
	log      *zap.Logger
}

func NewLogger(sink RunSink, producer *Producer, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{sink: sink, producer: producer, log: log}
}

// Record persists rec. Partial failures are combined into one ErrLogging;
// the record is still attempted on every destination.
func (l *Logger) Record(ctx context.Context, rec store.RunRecord) error {
	var failures []error

	if l.sink != nil {
		if err := l.sink.LogRun(ctx, rec); err != nil {
			l.log.Warn("run log write failed", zap.String("run_id", rec.RunID), zap.Error(err))
			failures = append(failures, err)
		}
	}

	if err := l.producer.Publish(ctx, rec.RunID, rec); err != nil {
		l.log.Warn("run event publish failed", zap.String("run_id", rec.RunID), zap.Error(err))
		failures = append(failures, err)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %v", ErrLogging, errors.Join(failures...))
	}
	return nil
}
