package matching

// ClaimSet tracks the target entities already selected during one run so
// that two source entities can never claim the same target in the same
// pass. It is run-scoped by construction: the orchestrator creates one
// per run and threads it through the match loop, so there is no shared
// module-level state to synchronize.
type ClaimSet struct {
	claimed map[string]bool
}

// NewClaimSet creates an empty run-scoped claim set.
func NewClaimSet() *ClaimSet {
	return &ClaimSet{claimed: make(map[string]bool)}
}

// Claim marks a target as taken. Returns false if it was already claimed.
func (c *ClaimSet) Claim(targetID string) bool {
	if c.claimed[targetID] {
		return false
	}
	c.claimed[targetID] = true
	return true
}

// Claimed reports whether the target is already taken this run.
func (c *ClaimSet) Claimed(targetID string) bool {
	return c.claimed[targetID]
}

// Len returns the number of claimed targets.
func (c *ClaimSet) Len() int {
	return len(c.claimed)
}
