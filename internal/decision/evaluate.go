package decision

// EvaluateRuleOnVariation reports whether every condition of rule holds for
// the variation and, if so, the rule's action. Goal metrics are read through
// their super-stat-sig status when requireSuperStatSig is set; guardrails
// always use the ordinary status. A metric missing from the snapshot never
// counts as a hit.
func EvaluateRuleOnVariation(rule Rule, variation VariationStatus, goalMetrics, guardrailMetrics []string, requireSuperStatSig bool) (Action, bool) {
	for _, condition := range rule.Conditions {
		target := condition.Direction.target()

		var ids []string
		status := func(id string) MetricStatus {
			goal, ok := variation.GoalMetrics[id]
			if !ok {
				return ""
			}
			if requireSuperStatSig {
				return goal.SuperStatSigStatus
			}
			return goal.Status
		}
		switch condition.Metrics {
		case MetricsGoals:
			ids = goalMetrics
		case MetricsGuardrails:
			ids = guardrailMetrics
			status = func(id string) MetricStatus {
				return variation.GuardrailMetrics[id].Status
			}
		default:
			return "", false
		}

		hits := 0
		for _, id := range ids {
			if status(id) == target {
				hits++
			}
		}
		if !condition.Match.matches(hits, len(ids)) {
			return "", false
		}
	}
	return rule.Action, true
}

// VariationDecisions evaluates criteria against every variation in order and
// returns the first matching rule's action, or the default action.
func VariationDecisions(results ResultsStatus, criteria Criteria, goalMetrics, guardrailMetrics []string, requireSuperStatSig bool) []VariationDecision {
	decisions := make([]VariationDecision, 0, len(results.Variations))
	for _, variation := range results.Variations {
		action := criteria.DefaultAction
		for _, rule := range criteria.Rules {
			if a, ok := EvaluateRuleOnVariation(rule, variation, goalMetrics, guardrailMetrics, requireSuperStatSig); ok {
				action = a
				break
			}
		}
		decisions = append(decisions, VariationDecision{VariationID: variation.VariationID, Action: action})
	}
	return decisions
}
