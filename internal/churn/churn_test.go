package churn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testThresholds = Thresholds{High: 0.7, Medium: 0.4}

func TestHeuristicScoreBounds(t *testing.T) {
	msgs := []string{
		"",
		"late refund cancel broken worst angry frustrated terrible no update charged twice crash",
		"Loved the fast shipping, thanks!",
	}
	for _, msg := range msgs {
		for rating := 0; rating <= 5; rating++ {
			s := HeuristicScore(rating, msg)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestHeuristicScoreRatingOrdering(t *testing.T) {
	msg := "just a question about my order"
	assert.Greater(t, HeuristicScore(1, msg), HeuristicScore(3, msg))
	assert.Greater(t, HeuristicScore(3, msg), HeuristicScore(5, msg))
	// Missing rating scores neutral.
	assert.Equal(t, HeuristicScore(3, msg), HeuristicScore(0, msg))
}

func TestHeuristicScoreKeywordsRaiseScore(t *testing.T) {
	calm := HeuristicScore(3, "checking in on my order status")
	upset := HeuristicScore(3, "my order is late and I want a refund")
	assert.Greater(t, upset, calm)
}

func TestHeuristicScoreDeterministic(t *testing.T) {
	a := HeuristicScore(2, "the app keeps crashing")
	b := HeuristicScore(2, "the app keeps crashing")
	assert.Equal(t, a, b)
}

// The combination table must be total: every label and every score bucket
// yields a verdict, and a "likely" label forces high regardless of score.
func TestAggregateTotality(t *testing.T) {
	labels := []string{LabelLikely, LabelUnlikely, "unknown", "", "garbage"}
	scores := []float64{0, 0.2, 0.4, 0.41, 0.7, 0.71, 1}

	for _, label := range labels {
		for _, score := range scores {
			v := Aggregate(label, score, testThresholds)
			assert.Contains(t, []Verdict{VerdictLow, VerdictMedium, VerdictHigh}, v,
				"label=%q score=%v", label, score)
			if label == LabelLikely {
				assert.Equal(t, VerdictHigh, v, "likely label must force high (score=%v)", score)
			}
		}
	}
}

func TestAggregateBuckets(t *testing.T) {
	assert.Equal(t, VerdictLow, Aggregate(LabelUnlikely, 0.1, testThresholds))
	assert.Equal(t, VerdictLow, Aggregate(LabelUnlikely, 0.4, testThresholds))
	assert.Equal(t, VerdictMedium, Aggregate(LabelUnlikely, 0.5, testThresholds))
	assert.Equal(t, VerdictHigh, Aggregate(LabelUnlikely, 0.9, testThresholds))
	// Unknown label falls back entirely to the score.
	assert.Equal(t, VerdictMedium, Aggregate("unknown", 0.5, testThresholds))
	assert.Equal(t, VerdictHigh, Aggregate("unknown", 0.8, testThresholds))
}

func TestRouteTotalityAndDeterminism(t *testing.T) {
	rules := RoutingRules{NegativeStreak: 3, SevereKeywords: []string{"refund"}}
	for _, v := range []Verdict{VerdictLow, VerdictMedium, VerdictHigh} {
		first := Route(v, 0, "hello", rules)
		assert.Contains(t, []Decision{Escalate, Recommend}, first)
		assert.Equal(t, first, Route(v, 0, "hello", rules))
	}
}

func TestRouteHighVerdictEscalates(t *testing.T) {
	assert.Equal(t, Escalate, Route(VerdictHigh, 0, "all fine", RoutingRules{}))
}

func TestRouteNegativeStreakEscalates(t *testing.T) {
	rules := RoutingRules{NegativeStreak: 3}
	assert.Equal(t, Recommend, Route(VerdictLow, 2, "hello", rules))
	assert.Equal(t, Escalate, Route(VerdictLow, 3, "hello", rules))
}

func TestRouteSevereKeywordEscalates(t *testing.T) {
	rules := RoutingRules{NegativeStreak: 3, SevereKeywords: []string{"chargeback", "lawyer"}}
	assert.Equal(t, Escalate, Route(VerdictLow, 0, "I will issue a CHARGEBACK", rules))
	assert.Equal(t, Recommend, Route(VerdictLow, 0, "quick question about billing", rules))
}
