package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainloop/churn-triage-pipeline/internal/store"
)

type memorySink struct {
	records []store.RunRecord
	err     error
}

func (m *memorySink) LogRun(_ context.Context, rec store.RunRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func TestRecordWritesToSink(t *testing.T) {
	sink := &memorySink{}
	l := NewLogger(sink, nil, nil)

	rec := store.RunRecord{RunID: "run-1", Decision: "escalate", Verdict: "high"}
	require.NoError(t, l.Record(context.Background(), rec))
	require.Len(t, sink.records, 1)
	assert.Equal(t, "escalate", sink.records[0].Decision)
	assert.Equal(t, "high", sink.records[0].Verdict)
}

func TestRecordSinkFailureIsLoggingError(t *testing.T) {
	l := NewLogger(&memorySink{err: errors.New("disk full")}, nil, nil)
	err := l.Record(context.Background(), store.RunRecord{RunID: "run-2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLogging))
}

func TestRecordWithoutDestinationsIsNoop(t *testing.T) {
	l := NewLogger(nil, nil, nil)
	assert.NoError(t, l.Record(context.Background(), store.RunRecord{RunID: "run-3"}))
}

func TestNilProducerIsNoop(t *testing.T) {
	var p *Producer
	assert.NoError(t, p.Publish(context.Background(), "k", map[string]string{"a": "b"}))
	assert.NoError(t, p.Close())
	assert.Nil(t, NewProducer(nil, "topic"))
}
