package churn

// Verdict is the final aggregated churn risk for a run.
type Verdict string

const (
	VerdictLow    Verdict = "low"
	VerdictMedium Verdict = "medium"
	VerdictHigh   Verdict = "high"
)

// Risk labels produced by the signal extractor.
const (
	LabelLikely   = "likely"
	LabelUnlikely = "unlikely"
)

// Thresholds bucket the heuristic score into the three verdicts.
type Thresholds struct {
	High   float64 // score above this is high risk
	Medium float64 // score above this (and at or below High) is medium risk
}

// Aggregate merges the model-derived churn label with the heuristic score
// into one verdict. The combination table is total:
//
//	label "likely"        -> high, regardless of score
//	label "unlikely"      -> score bucketed by the thresholds
//	anything else (unknown, sentinel, garbage) -> score bucketed the same way
//
// The model label can only force the verdict up, never down: an "unlikely"
// label with a score above the high threshold still yields high.
func Aggregate(label string, score float64, th Thresholds) Verdict {
	if label == LabelLikely {
		return VerdictHigh
	}
	return bucket(score, th)
}

func bucket(score float64, th Thresholds) Verdict {
	switch {
	case score > th.High:
		return VerdictHigh
	case score > th.Medium:
		return VerdictMedium
	default:
		return VerdictLow
	}
}
