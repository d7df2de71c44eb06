package enum

// ── Roles (CHECK constrained in DB) ──

const (
	RoleWaiter    = "waiter"
	RoleReception = "reception"
	RoleChef      = "chef"
)

// ── Spice levels (nullable label on menu items) ──

const (
	SpiceMild    = "mild"
	SpiceMedium  = "medium"
	SpiceHot     = "hot"
	SpiceVeryHot = "very_hot"
)
