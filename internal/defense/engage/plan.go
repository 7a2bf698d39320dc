package engage

import "time"

// PlannedEngagement pairs one threat with one battery in a batch plan.
type PlannedEngagement struct {
	ThreatID  string
	BatteryID string
	Score     float64
}

// PlanAssignments solves the whole threat-to-battery pairing at once.
// Where FindOptimalBattery greedily picks the best battery per threat,
// the batch plan maximizes the total engagement score across all
// threats, so two threats competing for the same battery are split
// between it and the runner-up instead of one threat going unserved.
//
// Threats with a live assignment are skipped, pairings the scorer
// rejects are forbidden, and the plan does not mutate coordinator
// state: callers commit chosen pairings via AssignThreatToBattery.
func (c *Coordinator) PlanAssignments(threats []Threat, now time.Time) []PlannedEngagement {
	c.mu.RLock()
	defer c.mu.RUnlock()

	open := make([]Threat, 0, len(threats))
	for _, threat := range threats {
		if !c.hasLiveAssignment(threat.ID) {
			open = append(open, threat)
		}
	}
	ids := c.sortedBatteryIDs()
	if len(open) == 0 || len(ids) == 0 {
		return nil
	}

	// Negated scores turn score maximization into the cost
	// minimization the Hungarian solver expects.
	cost := make([][]float64, len(open))
	scores := make([][]float64, len(open))
	for i, threat := range open {
		cost[i] = make([]float64, len(ids))
		scores[i] = make([]float64, len(ids))
		for j, id := range ids {
			score := c.scoreBattery(c.batteries[id], threat, now)
			scores[i][j] = score
			if score <= 0 {
				cost[i][j] = forbiddenCost
			} else {
				cost[i][j] = -score
			}
		}
	}

	assignment := hungarianAssign(cost)
	var plan []PlannedEngagement
	for i, j := range assignment {
		if j < 0 {
			continue
		}
		plan = append(plan, PlannedEngagement{
			ThreatID:  open[i].ID,
			BatteryID: ids[j],
			Score:     scores[i][j],
		})
	}
	return plan
}
