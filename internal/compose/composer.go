// Package compose builds the grounded reply prompt and requests the reply
// variants from the text-generation service.
package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/retainloop/churn-triage-pipeline/internal/churn"
	"github.com/retainloop/churn-triage-pipeline/internal/llm"
	"github.com/retainloop/churn-triage-pipeline/internal/store"
)

// ErrNoVariants reports that every requested completion failed. This is
// the only stage failure that is fatal for a run: there is no reply to show.
var ErrNoVariants = errors.New("compose: no variants produced")

const toneSystem = "You are a concise, empathetic customer support agent. " +
	"Reply in 60-120 words. If the customer is upset, acknowledge, apologise briefly, " +
	"and give ONE concrete next step. Avoid bullets unless asked."

// Request carries everything the composer needs for one run.
type Request struct {
	Message   string
	Decision  churn.Decision
	Exemplars []store.Exemplar
	// Recommendations are the offerings the agent may suggest on the
	// recommend route. Empty keeps the guidance generic.
	Recommendations []string
	Variants        int
	Model           string
	Temperature     float64
}

// Composer generates reply variants.
type Composer struct {
	client llm.Client
	log    *zap.Logger
}

func NewComposer(client llm.Client, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{client: client, log: log}
}

// Compose requests req.Variants independent completions of one composite
// prompt. Completions run concurrently but the returned sequence is in
// request order with failed slots dropped, so the observable order does not
// depend on completion order. Zero successes returns ErrNoVariants.
func (c *Composer) Compose(ctx context.Context, req Request) ([]string, error) {
	if req.Variants < 1 {
		req.Variants = 1
	}
	prompt := BuildPrompt(req.Message, req.Decision, req.Exemplars, req.Recommendations)

	results := make([]string, req.Variants)
	failures := make([]error, req.Variants)

	var wg sync.WaitGroup
	for i := 0; i < req.Variants; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			out, err := c.client.Complete(ctx, llm.Request{
				System:      toneSystem,
				Prompt:      prompt,
				Model:       req.Model,
				Temperature: req.Temperature,
			})
			if err != nil {
				failures[slot] = err
				return
			}
			results[slot] = strings.TrimSpace(out)
		}(i)
	}
	wg.Wait()

	variants := make([]string, 0, req.Variants)
	for i, r := range results {
		if failures[i] != nil {
			c.log.Warn("variant generation failed", zap.Int("slot", i), zap.Error(failures[i]))
			continue
		}
		if r != "" {
			variants = append(variants, r)
		}
	}

	if len(variants) == 0 {
		if err := firstError(failures); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoVariants, err)
		}
		return nil, ErrNoVariants
	}
	return variants, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// BuildPrompt assembles the composite prompt: few-shot exemplars in
// retrieval order, tone guidance for the route, then the customer message.
// Deterministic for identical inputs.
func BuildPrompt(message string, decision churn.Decision, exemplars []store.Exemplar, recommendations []string) string {
	var b strings.Builder

	b.WriteString(FormatExemplars(exemplars))
	b.WriteString("\n\nGuidance: ")
	switch {
	case decision == churn.Escalate:
		b.WriteString("Escalate to a senior specialist and set expectation for response time.")
	case len(recommendations) > 0:
		b.WriteString("Resolve directly. If it fits naturally, suggest ONE of: ")
		b.WriteString(strings.Join(recommendations, "; "))
		b.WriteString(".")
	default:
		b.WriteString("Resolve directly and optionally offer one helpful recommendation.")
	}
	b.WriteString("\n\nCustomer said: ")
	b.WriteString(message)
	b.WriteString("\nWrite ONLY the reply.")

	return b.String()
}

// FormatExemplars renders the few-shot block. With no exemplars a single
// built-in demonstration keeps the reply style anchored.
func FormatExemplars(exemplars []store.Exemplar) string {
	if len(exemplars) == 0 {
		return "Example:\nUser: My delivery was late.\n" +
			"Agent: I'm sorry for the delay, that's not the experience we want. " +
			"I've checked your order and prioritised a replacement. You'll get an update within 24 hours."
	}
	parts := make([]string, 0, len(exemplars))
	for _, e := range exemplars {
		parts = append(parts, fmt.Sprintf("Example:\nUser: %s\nAgent: %s", e.Prompt, e.IdealResponse))
	}
	return strings.Join(parts, "\n\n")
}
