package service

// Status is an order's fulfillment state. Orders only ever move forward
// along statusSequence; closed is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusClosed    Status = "closed"
)

// statusSequence is the forward order of the lifecycle. Transition
// legality is derived from positions in this slice, not from scattered
// conditionals.
var statusSequence = []Status{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReady,
	StatusServed,
	StatusClosed,
}

var statusRank = func() map[Status]int {
	m := make(map[Status]int, len(statusSequence))
	for i, s := range statusSequence {
		m[s] = i
	}
	return m
}()

// ParseStatus maps a raw string to a known Status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := statusRank[st]
	return st, ok
}

// Next returns the successor state, or false at closed.
func (s Status) Next() (Status, bool) {
	i, ok := statusRank[s]
	if !ok || i+1 >= len(statusSequence) {
		return "", false
	}
	return statusSequence[i+1], true
}

// Terminal reports whether no further transitions leave this state.
func (s Status) Terminal() bool {
	return s == StatusClosed
}
