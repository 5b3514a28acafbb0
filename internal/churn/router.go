package churn

import "strings"

// Decision is the routing outcome for a run. There is no undecided state.
type Decision string

const (
	Escalate  Decision = "escalate"
	Recommend Decision = "recommend"
)

// RoutingRules are the tunable escalation triggers. The exact streak length
// and keyword list are configuration, not code.
type RoutingRules struct {
	NegativeStreak int      // escalate at this many consecutive negative messages
	SevereKeywords []string // escalate when any of these appears in the message
}

// Route maps the aggregated verdict plus secondary signals to exactly one
// decision. Pure and total: identical inputs always yield the same decision.
func Route(verdict Verdict, negativeStreak int, message string, rules RoutingRules) Decision {
	if verdict == VerdictHigh {
		return Escalate
	}
	if rules.NegativeStreak > 0 && negativeStreak >= rules.NegativeStreak {
		return Escalate
	}
	lower := strings.ToLower(message)
	for _, kw := range rules.SevereKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return Escalate
		}
	}
	return Recommend
}
