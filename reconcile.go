package launchagent

// Reconcile merges descriptor-derived agents with a status map. Every input agent
// yields exactly one output agent, NotLoaded when launchd did not report it.
// Statuses without a descriptor are dropped. The input slice is left untouched.
func Reconcile(agents []LaunchAgent, statuses map[string]AgentStatus) []LaunchAgent {
	out := make([]LaunchAgent, len(agents))
	for i, agent := range agents {
		if status, ok := statuses[agent.Label]; ok {
			agent.Status = status
		} else {
			agent.Status = NotLoaded()
		}
		out[i] = agent
	}
	return out
}
