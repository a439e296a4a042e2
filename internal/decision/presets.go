package decision

// DefaultCriteria returns the built-in "Clear Signals" criteria: ship when
// every goal metric wins and no guardrail loses, roll back when any goal or
// guardrail loses, review otherwise.
func DefaultCriteria() Criteria {
	return Criteria{
		ID:          "clear-signals",
		Name:        "Clear Signals",
		Description: "Only ship if all goal metrics are significant winners and no guardrail metric is a significant loser.",
		Rules: []Rule{
			{
				Conditions: []Condition{
					{Metrics: MetricsGoals, Match: MatchAll, Direction: DirectionWinner},
					{Metrics: MetricsGuardrails, Match: MatchNone, Direction: DirectionLoser},
				},
				Action: ActionShip,
			},
			{
				Conditions: []Condition{
					{Metrics: MetricsGoals, Match: MatchAny, Direction: DirectionLoser},
				},
				Action: ActionRollback,
			},
			{
				Conditions: []Condition{
					{Metrics: MetricsGuardrails, Match: MatchAny, Direction: DirectionLoser},
				},
				Action: ActionRollback,
			},
		},
		DefaultAction: ActionReview,
	}
}
