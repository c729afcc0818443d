// Package netquality probes a set of endpoints on an interval and
// classifies overall connectivity as ONLINE, WEAK, or OFFLINE, notifying
// subscribers on every transition. The queue processor (internal/processor)
// is the primary subscriber: it drains the offline queue only while
// connectivity is ONLINE or WEAK and pauses mid-drain on a drop to OFFLINE.
package netquality

// Status is the aggregate connectivity classification.
type Status string

const (
	Online  Status = "ONLINE"
	Weak    Status = "WEAK"
	Offline Status = "OFFLINE"
)

// Transition describes a status change delivered to subscribers.
type Transition struct {
	Old Status
	New Status
}
