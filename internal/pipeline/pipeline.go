// Package pipeline orchestrates one triage run: classify the message,
// score and aggregate churn risk, route, retrieve exemplars, compose the
// reply, and log the run. The machine is strictly linear; the routing fork
// only selects the composer's tone, and the logger always runs last.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retainloop/churn-triage-pipeline/internal/classify"
	"github.com/retainloop/churn-triage-pipeline/internal/churn"
	"github.com/retainloop/churn-triage-pipeline/internal/compose"
	"github.com/retainloop/churn-triage-pipeline/internal/config"
	"github.com/retainloop/churn-triage-pipeline/internal/llm"
	"github.com/retainloop/churn-triage-pipeline/internal/store"
	"github.com/retainloop/churn-triage-pipeline/internal/telemetry"
)

// ErrRetrieval marks a store failure during exemplar retrieval. Absorbed
// at the stage boundary; the run proceeds with an empty exemplar set.
var ErrRetrieval = errors.New("pipeline: exemplar retrieval failed")

// fallbackTopic is used for retrieval when the extractor could not
// recover a topic.
const fallbackTopic = "support"

// ExemplarSource is the narrow read interface onto the relational store.
type ExemplarSource interface {
	FetchExemplars(ctx context.Context, topic, sentiment string, limit int) ([]store.Exemplar, error)
}

// Options is the explicit per-pipeline configuration. There is no
// process-wide mutable default; changing the model or temperature means
// constructing a new Pipeline.
type Options struct {
	Model         string
	Temperature   float64
	VariantCount  int
	ExemplarLimit int
	Thresholds    churn.Thresholds
	Rules         churn.RoutingRules
	// Recommendations feed the composer's recommend-route guidance.
	Recommendations []string
}

// OptionsFromConfig maps the loaded configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		VariantCount:  cfg.Pipeline.VariantCount,
		ExemplarLimit: cfg.Pipeline.ExemplarLimit,
		Thresholds: churn.Thresholds{
			High:   cfg.Pipeline.HighThreshold,
			Medium: cfg.Pipeline.MediumThreshold,
		},
		Rules: churn.RoutingRules{
			NegativeStreak: cfg.Pipeline.NegativeStreak,
			SevereKeywords: cfg.Pipeline.SevereKeywords,
		},
		Recommendations: cfg.Pipeline.Recommendations,
	}
}

// Input is one incoming customer message.
type Input struct {
	Message string
	// Rating is the external 1-5 rating, 0 when absent.
	Rating int
	// NegativeStreak is the count of consecutive negative messages seen
	// before this one. Tracked by the caller across runs.
	NegativeStreak int
}

// Result is what the caller sees. Variants is non-empty unless Run also
// returned an error.
type Result struct {
	RunID    string
	Verdict  churn.Verdict
	Decision churn.Decision
	Variants []string
}

// Pipeline wires the stages. Safe for concurrent Run calls: all mutable
// state lives in the per-run RunState.
type Pipeline struct {
	opts       Options
	classifier *classify.Classifier
	composer   *compose.Composer
	exemplars  ExemplarSource
	telemetry  *telemetry.Logger
	log        *zap.Logger
}

// New creates a pipeline. exemplars and tlog may be nil: the pipeline then
// runs without few-shot grounding or without durable telemetry, the same
// degraded modes it falls into when those collaborators fail mid-run.
func New(opts Options, client llm.Client, exemplars ExemplarSource, tlog *telemetry.Logger, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		opts:       opts,
		classifier: classify.NewClassifier(client, opts.Model, log),
		composer:   compose.NewComposer(client, log),
		exemplars:  exemplars,
		telemetry:  tlog,
		log:        log,
	}
}

// Run executes the full machine for one message. The caller always gets
// either a reply (possibly produced under degraded signals) or an error;
// only a composition failure is an error, and the run is logged either way.
func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	state := &RunState{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now().UTC(),
		Message:        in.Message,
		Rating:         in.Rating,
		NegativeStreak: in.NegativeStreak,
		Stage:          StageStart,
	}
	log := p.log.With(zap.String("run_id", state.RunID))

	// Extract. Service or parse failures degrade to sentinels.
	cls, err := p.classifier.Classify(ctx, in.Message)
	if err != nil {
		state.fail(StageExtracted, err)
		log.Warn("extraction degraded", zap.Error(err))
	}
	state.Topic = cls.Topic
	state.Sentiment = cls.Sentiment
	state.FrustrationLevel = cls.FrustrationLevel
	state.ChurnRiskLabel = cls.ChurnRisk
	if state.Sentiment == "negative" {
		state.NegativeStreak++
	}
	state.advance(StageExtracted)
	log.Info("extracted",
		zap.String("topic", state.Topic),
		zap.String("sentiment", state.Sentiment),
		zap.String("churn_risk", state.ChurnRiskLabel))

	// Score.
	state.HeuristicScore = churn.HeuristicScore(in.Rating, in.Message)
	state.advance(StageScored)

	// Aggregate. Must precede routing.
	state.FinalVerdict = churn.Aggregate(state.ChurnRiskLabel, state.HeuristicScore, p.opts.Thresholds)
	state.advance(StageAggregated)
	log.Info("aggregated",
		zap.Float64("heuristic_score", state.HeuristicScore),
		zap.String("verdict", string(state.FinalVerdict)))

	// Route.
	state.RouteDecision = churn.Route(state.FinalVerdict, state.NegativeStreak, in.Message, p.opts.Rules)
	state.advance(StageRouted)
	log.Info("routed", zap.String("decision", string(state.RouteDecision)))

	// Retrieve. Store failures degrade to an empty exemplar set.
	state.Exemplars = p.retrieve(ctx, state, log)
	state.advance(StageRetrieved)

	// Compose. The only failure that is fatal for the run, but the
	// machine still reaches the logging stage.
	variants, composeErr := p.composer.Compose(ctx, compose.Request{
		Message:         in.Message,
		Decision:        state.RouteDecision,
		Exemplars:       state.Exemplars,
		Recommendations: p.opts.Recommendations,
		Variants:        p.opts.VariantCount,
		Model:           p.opts.Model,
		Temperature:     p.opts.Temperature,
	})
	if composeErr != nil {
		state.fail(StageComposed, composeErr)
		log.Error("composition failed", zap.Error(composeErr))
	} else {
		state.Variants = variants
		state.advance(StageComposed)
	}

	// Log. Always runs, and never takes back an already-computed reply.
	state.FinishedAt = time.Now().UTC()
	if p.telemetry != nil {
		if err := p.telemetry.Record(ctx, state.Record()); err != nil {
			state.fail(StageLogged, err)
			log.Warn("telemetry degraded", zap.Error(err))
		}
	}
	state.advance(StageLogged)
	state.advance(StageDone)

	result := Result{
		RunID:    state.RunID,
		Verdict:  state.FinalVerdict,
		Decision: state.RouteDecision,
		Variants: state.Variants,
	}
	if composeErr != nil {
		return result, fmt.Errorf("run %s: %w", state.RunID, composeErr)
	}
	return result, nil
}

func (p *Pipeline) retrieve(ctx context.Context, state *RunState, log *zap.Logger) []store.Exemplar {
	if p.exemplars == nil || p.opts.ExemplarLimit <= 0 {
		return nil
	}
	topic := state.Topic
	if topic == classify.Unknown || topic == "" {
		topic = fallbackTopic
	}
	exemplars, err := p.exemplars.FetchExemplars(ctx, topic, "", p.opts.ExemplarLimit)
	if err != nil {
		state.fail(StageRetrieved, fmt.Errorf("%w: %v", ErrRetrieval, err))
		log.Warn("retrieval degraded", zap.Error(err))
		return nil
	}
	log.Info("retrieved exemplars", zap.String("topic", topic), zap.Int("count", len(exemplars)))
	return exemplars
}
