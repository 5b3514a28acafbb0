// Package classify turns a raw customer message into typed signals
// (sentiment, frustration, churn risk, topic) using the text-generation
// service, surviving malformed output instead of failing the run.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/retainloop/churn-triage-pipeline/internal/llm"
)

// Unknown is the sentinel assigned to any field that cannot be recovered
// from the service output. Downstream stages treat it as "no signal".
const Unknown = "unknown"

// ErrUnparseable reports that the service was reachable but its output
// could not be recovered into a classification even after normalization
// and field-level fallback. The accompanying Classification still carries
// sentinel values, so callers degrade rather than abort.
var ErrUnparseable = errors.New("classify: output unusable after recovery")

// Classification is the typed result of one extraction call.
type Classification struct {
	Sentiment        string `json:"sentiment"`
	FrustrationLevel string `json:"frustration_level"`
	ChurnRisk        string `json:"churn_risk"`
	Topic            string `json:"topic"`
}

var (
	sentiments   = map[string]bool{"positive": true, "neutral": true, "negative": true}
	frustrations = map[string]bool{"low": true, "medium": true, "high": true}
	churnRisks   = map[string]bool{"likely": true, "unlikely": true}
	topics       = map[string]bool{"support": true, "billing": true, "delivery": true, "product": true, "app": true, "other": true}

	classificationFields = []string{"sentiment", "frustration_level", "churn_risk", "topic"}
)

const systemInstruction = "You are a strict classification agent. " +
	"Return ONLY valid JSON, no prose. " +
	`Schema: {"sentiment":"positive|neutral|negative",` +
	`"frustration_level":"low|medium|high",` +
	`"churn_risk":"likely|unlikely",` +
	`"topic":"support|billing|delivery|product|app|other"}`

// Classifier extracts signals via the generation service.
type Classifier struct {
	client llm.Client
	model  string
	log    *zap.Logger
}

// NewClassifier creates a classifier bound to one model identifier.
func NewClassifier(client llm.Client, model string, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{client: client, model: model, log: log}
}

// Classify sends message to the service and parses the reply defensively.
//
// The returned Classification is always usable: unrecoverable fields hold
// the Unknown sentinel. The error reports what degraded: llm.ErrUnavailable
// or llm.ErrModelNotFound when the service could not be called (retryable),
// ErrUnparseable when the output defeated every recovery layer.
func (c *Classifier) Classify(ctx context.Context, message string) (Classification, error) {
	sentinel := Classification{
		Sentiment:        Unknown,
		FrustrationLevel: Unknown,
		ChurnRisk:        Unknown,
		Topic:            Unknown,
	}

	raw, err := c.client.Complete(ctx, llm.Request{
		System:      systemInstruction,
		Prompt:      "Customer: " + message,
		Model:       c.model,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return sentinel, fmt.Errorf("classify: %w", err)
	}

	c.log.Debug("raw classification output", zap.String("output", raw))

	obj, parseErr := ExtractObject(raw)
	if parseErr != nil {
		// Structured parse lost; try per-field regex recovery.
		fields := fieldFallback(raw, classificationFields)
		if len(fields) == 0 {
			return sentinel, ErrUnparseable
		}
		obj = make(map[string]any, len(fields))
		for k, v := range fields {
			obj[k] = v
		}
	}

	return Classification{
		Sentiment:        pick(obj, "sentiment", sentiments),
		FrustrationLevel: pick(obj, "frustration_level", frustrations),
		ChurnRisk:        pick(obj, "churn_risk", churnRisks),
		Topic:            pick(obj, "topic", topics),
	}, nil
}

// pick reads a string field from the parsed object and validates it
// against the field vocabulary, returning Unknown otherwise.
func pick(obj map[string]any, field string, vocab map[string]bool) string {
	v, ok := obj[field]
	if !ok {
		return Unknown
	}
	s, ok := v.(string)
	if !ok {
		return Unknown
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if !vocab[s] {
		return Unknown
	}
	return s
}
