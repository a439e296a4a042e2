package decision

// FrameworkStatus runs the two-pass decision framework.
//
// The first pass only trusts super-stat-sig results and may recommend at any
// time. When it finds nothing and daysNeeded is nil the experiment has not
// reached its power target yet, and there is no recommendation. Otherwise the
// second pass uses ordinary significance. Within a pass rollback outranks
// ship, and ship outranks review.
func FrameworkStatus(results ResultsStatus, criteria Criteria, goalMetrics, guardrailMetrics []string, daysNeeded *int) *Recommendation {
	early := VariationDecisions(results, criteria, goalMetrics, guardrailMetrics, true)
	if rec := decisive(early, false, true); rec != nil {
		return rec
	}

	if daysNeeded == nil {
		return nil
	}

	powered := VariationDecisions(results, criteria, goalMetrics, guardrailMetrics, false)
	if rec := decisive(powered, true, false); rec != nil {
		return rec
	}

	ids := make([]string, 0, len(powered))
	for _, d := range powered {
		ids = append(ids, d.VariationID)
	}
	return &Recommendation{
		Status:         RecommendReview,
		VariationIDs:   ids,
		PowerReached:   true,
		SequentialUsed: false,
	}
}

// decisive returns a rollback recommendation if any variation rolls back,
// else a ship recommendation if any ships, else nil.
func decisive(decisions []VariationDecision, powerReached, sequentialUsed bool) *Recommendation {
	for _, status := range []struct {
		action Action
		rec    RecommendationStatus
	}{
		{ActionRollback, RecommendRollback},
		{ActionShip, RecommendShip},
	} {
		ids := withAction(decisions, status.action)
		if len(ids) > 0 {
			return &Recommendation{
				Status:         status.rec,
				VariationIDs:   ids,
				PowerReached:   powerReached,
				SequentialUsed: sequentialUsed,
			}
		}
	}
	return nil
}

func withAction(decisions []VariationDecision, action Action) []string {
	var ids []string
	for _, d := range decisions {
		if d.Action == action {
			ids = append(ids, d.VariationID)
		}
	}
	return ids
}
