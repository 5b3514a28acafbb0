package pipeline

import (
	"time"

	"github.com/retainloop/churn-triage-pipeline/internal/churn"
	"github.com/retainloop/churn-triage-pipeline/internal/store"
)

// Stage names the states of the run machine. Strictly linear; a run never
// re-enters an earlier stage.
type Stage string

const (
	StageStart      Stage = "start"
	StageExtracted  Stage = "extracted"
	StageScored     Stage = "scored"
	StageAggregated Stage = "aggregated"
	StageRouted     Stage = "routed"
	StageRetrieved  Stage = "retrieved"
	StageComposed   Stage = "composed"
	StageLogged     Stage = "logged"
	StageDone       Stage = "done"
)

// StageError is one absorbed failure, kept for the audit record.
type StageError struct {
	Stage Stage
	Err   string
}

// RunState is the single mutable record threaded through one run. It is
// exclusively owned by that run: created at the entry point, discarded at
// the end, never shared and never reused. Append-only; each field is
// written by exactly one stage.
type RunState struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Input, immutable once set.
	Message        string
	Rating         int
	NegativeStreak int

	// Signal extractor output. "unknown" sentinels when extraction degraded.
	Topic            string
	Sentiment        string
	FrustrationLevel string
	ChurnRiskLabel   string

	HeuristicScore float64
	FinalVerdict   churn.Verdict
	RouteDecision  churn.Decision

	Exemplars []store.Exemplar
	Variants  []string

	Stage  Stage
	Errors []StageError
}

// advance moves the machine forward. Stages only ever move in declaration
// order, so a plain assignment is enough.
func (s *RunState) advance(stage Stage) {
	s.Stage = stage
}

// fail records an absorbed stage failure without halting the run.
func (s *RunState) fail(stage Stage, err error) {
	s.Errors = append(s.Errors, StageError{Stage: stage, Err: err.Error()})
}

// Record flattens the state into the durable audit row.
func (s *RunState) Record() store.RunRecord {
	reply := ""
	if len(s.Variants) > 0 {
		reply = s.Variants[0]
	}
	errs := make([]string, 0, len(s.Errors))
	for _, e := range s.Errors {
		errs = append(errs, string(e.Stage)+": "+e.Err)
	}
	return store.RunRecord{
		RunID:            s.RunID,
		Message:          s.Message,
		Rating:           s.Rating,
		Topic:            s.Topic,
		Sentiment:        s.Sentiment,
		FrustrationLevel: s.FrustrationLevel,
		ChurnRiskLabel:   s.ChurnRiskLabel,
		HeuristicScore:   s.HeuristicScore,
		Verdict:          string(s.FinalVerdict),
		Decision:         string(s.RouteDecision),
		Reply:            reply,
		Errors:           errs,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
	}
}
