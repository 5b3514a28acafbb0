// Package churn holds the deterministic half of the triage decision:
// a cheap heuristic churn score, the rule that merges it with the
// model-derived risk label, and the escalate/recommend router.
package churn

import "strings"

// negativeKeywords are cheap lexical churn signals. Placeholder for a real
// model; kept short and lowercase on purpose.
var negativeKeywords = []string{
	"late", "refund", "cancel", "broken", "worst", "angry",
	"frustrated", "terrible", "no update", "charged twice", "crash",
}

// ratingScore maps an external 1-5 rating to a base churn score.
// Rating 0 means "not provided" and scores neutral.
var ratingScore = map[int]float64{
	0: 0.5,
	1: 0.9,
	2: 0.75,
	3: 0.5,
	4: 0.25,
	5: 0.1,
}

// HeuristicScore computes a bounded churn score from locally available
// signals only: the customer rating (if any) and negative-keyword hits in
// the message. Pure and deterministic; no external calls.
func HeuristicScore(rating int, message string) float64 {
	base, ok := ratingScore[rating]
	if !ok {
		base = 0.5
	}

	lower := strings.ToLower(message)
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			base += 0.05
		}
	}

	if base > 1 {
		base = 1
	}
	if base < 0 {
		base = 0
	}
	return base
}
