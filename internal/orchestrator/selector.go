package orchestrator

// Selector picks the best available agent for a task using a scoring
// system over capability match, success rate, average response time, and
// load balancing: +10 for an explicit capability match, +5 for a
// general-only match, plus success_rate*5, plus (1/avg_response_time)*2,
// minus tasks_completed*0.1.
type Selector struct {
	registry *AgentRegistry
}

// NewSelector creates a Selector over the given agent registry.
func NewSelector(registry *AgentRegistry) *Selector {
	return &Selector{registry: registry}
}

// Select returns the ID of the best eligible idle agent for the task, or
// "" if none qualifies. Only agents in AgentIdle status are considered.
// Ties are broken lexicographically by agent ID for determinism.
func (s *Selector) Select(t *Task) string {
	var bestID string
	var bestScore float64
	haveCandidate := false

	for _, agent := range s.registry.All() {
		if agent.Status != AgentIdle {
			continue
		}

		_, explicit := agent.Capabilities[t.Type]
		_, general := agent.Capabilities["general"]
		if !explicit && !general {
			continue
		}

		score := 0.0
		switch {
		case explicit:
			score += 10
		case general:
			score += 5
		}

		totalAttempts := agent.TasksCompleted + agent.TasksFailed
		if agent.TasksCompleted > 0 && totalAttempts > 0 {
			successRate := float64(agent.TasksCompleted) / float64(totalAttempts)
			score += successRate * 5
		}

		if agent.AverageResponseTime > 0 {
			score += (1.0 / agent.AverageResponseTime.Seconds()) * 2
		}

		score -= float64(agent.TasksCompleted) * 0.1

		if !haveCandidate || score > bestScore || (score == bestScore && agent.ID < bestID) {
			bestID = agent.ID
			bestScore = score
			haveCandidate = true
		}
	}

	return bestID
}
