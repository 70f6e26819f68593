package domain

import "time"

// Reassign moves c to target and returns the record to persist. An ineligible
// target fails with ErrAgentUnavailable and leaves c unchanged. Agent loads
// are not touched here; see AgentSelector.Transfer.
func Reassign(c *Case, target Agent, at time.Time) (ReassignmentRecord, error) {
	return c.Reassign(target, "", at)
}
