package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainloop/churn-triage-pipeline/internal/llm"
)

// scriptedClient returns a fixed output (or error) for every request.
type scriptedClient struct {
	output string
	err    error
	gotReq llm.Request
}

func (s *scriptedClient) Complete(_ context.Context, req llm.Request) (string, error) {
	s.gotReq = req
	return s.output, s.err
}

const cleanOutput = `{"sentiment":"negative","frustration_level":"high","churn_risk":"likely","topic":"delivery"}`

func classify(t *testing.T, output string) (Classification, error) {
	t.Helper()
	client := &scriptedClient{output: output}
	c := NewClassifier(client, "llama-3.1-8b-instant", nil)
	got, err := c.Classify(context.Background(), "my order is late again")
	require.True(t, client.gotReq.JSONMode, "classification must request JSON output")
	require.Equal(t, "llama-3.1-8b-instant", client.gotReq.Model)
	return got, err
}

func TestClassifyWellFormed(t *testing.T) {
	got, err := classify(t, cleanOutput)
	require.NoError(t, err)
	assert.Equal(t, Classification{
		Sentiment:        "negative",
		FrustrationLevel: "high",
		ChurnRisk:        "likely",
		Topic:            "delivery",
	}, got)
}

// Recoverable malformations must classify identically to the clean output.
func TestClassifyRecoverableMalformations(t *testing.T) {
	want, err := classify(t, cleanOutput)
	require.NoError(t, err)

	cases := map[string]string{
		"prose wrapper":  "Here you go:\n" + cleanOutput + "\nHope that helps!",
		"markdown fence": "```json\n" + cleanOutput + "\n```",
		"trailing comma": `{"sentiment":"negative","frustration_level":"high","churn_risk":"likely","topic":"delivery",}`,
		"smart quotes":   `{“sentiment”:“negative”,“frustration_level”:“high”,“churn_risk”:“likely”,“topic”:“delivery”}`,
		"single quotes":  `{'sentiment':'negative','frustration_level':'high','churn_risk':'likely','topic':'delivery'}`,
		"upper case":     `{"sentiment":"Negative","frustration_level":"HIGH","churn_risk":"Likely","topic":"Delivery"}`,
	}

	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := classify(t, output)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestClassifyRegexFallback(t *testing.T) {
	// Broken beyond object repair but field values still present.
	got, err := classify(t, `sentiment: negative ... churn_risk: likely ... topic: billing {`)
	require.NoError(t, err)
	assert.Equal(t, "negative", got.Sentiment)
	assert.Equal(t, "likely", got.ChurnRisk)
	assert.Equal(t, "billing", got.Topic)
}

func TestClassifyUnrecoverableDegradesToSentinels(t *testing.T) {
	got, err := classify(t, "I am unable to help with that request.")
	require.ErrorIs(t, err, ErrUnparseable)
	assert.Equal(t, Classification{
		Sentiment:        Unknown,
		FrustrationLevel: Unknown,
		ChurnRisk:        Unknown,
		Topic:            Unknown,
	}, got)
}

func TestClassifyOutOfVocabularyBecomesUnknown(t *testing.T) {
	got, err := classify(t, `{"sentiment":"furious","frustration_level":"extreme","churn_risk":"likely","topic":"delivery"}`)
	require.NoError(t, err)
	assert.Equal(t, Unknown, got.Sentiment)
	assert.Equal(t, Unknown, got.FrustrationLevel)
	assert.Equal(t, "likely", got.ChurnRisk)
}

func TestClassifyServiceErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: llm.ErrUnavailable}
	c := NewClassifier(client, "m", nil)
	got, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrUnavailable))
	assert.Equal(t, Unknown, got.Sentiment)
}
