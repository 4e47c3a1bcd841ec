// Package workflow is the single definition of the order status state
// machine. Every status mutation goes through this table, including the
// status selector served to clients.
package workflow

import "fmt"

// Order statuses. Pending is the only initial status.
const (
	StatusPending        = "Pending"
	StatusApproved       = "Approved"
	StatusRejected       = "Rejected"
	StatusPacked         = "Packed"
	StatusOutForDelivery = "Out for Delivery"
	StatusDelivered      = "Delivered"
)

// Transitions maps each status to the set of statuses it may move to.
// Delivered and Rejected are terminal.
var Transitions = map[string][]string{
	StatusPending:        {StatusApproved, StatusRejected},
	StatusApproved:       {StatusPacked, StatusRejected},
	StatusPacked:         {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {},
	StatusRejected:       {},
}

// Valid reports whether s is a known order status.
func Valid(s string) bool {
	_, ok := Transitions[s]
	return ok
}

// IsTerminal reports whether s admits no further transitions.
func IsTerminal(s string) bool {
	next, ok := Transitions[s]
	return ok && len(next) == 0
}

// NextStatuses returns the statuses reachable from s. The returned slice
// must not be mutated.
func NextStatuses(s string) []string {
	return Transitions[s]
}

// CanTransition reports whether an order may move from current to next.
func CanTransition(current, next string) bool {
	for _, s := range Transitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error when the move from
// current to next is not in the table.
func ValidateTransition(current, next string) error {
	if !Valid(next) {
		return fmt.Errorf("unknown status %q", next)
	}
	if _, ok := Transitions[current]; !ok {
		return fmt.Errorf("unknown status %q", current)
	}
	if IsTerminal(current) {
		return fmt.Errorf("%s is a terminal status", current)
	}
	if !CanTransition(current, next) {
		return fmt.Errorf("cannot transition from %s to %s", current, next)
	}
	return nil
}
