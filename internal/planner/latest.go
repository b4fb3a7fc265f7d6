package planner

import "sync/atomic"

// LatestOnly hands out tickets for overlapping requests. Only the most
// recently issued ticket is current, so a slow response to an older request
// can never overwrite the result of a newer one.
type LatestOnly struct {
	gen atomic.Uint64
}

type Ticket struct {
	guard *LatestOnly
	n     uint64
}

// Begin issues a ticket and supersedes every earlier one.
func (g *LatestOnly) Begin() Ticket {
	return Ticket{guard: g, n: g.gen.Add(1)}
}

// Current reports whether no newer ticket has been issued.
func (t Ticket) Current() bool {
	return t.guard.gen.Load() == t.n
}
