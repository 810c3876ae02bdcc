package session

// EventType classifies registry mutations for observers (metrics, logging).
type EventType int

const (
	EventConnected EventType = iota // waiting entry promoted to active
	EventEnded                      // active session ended by the operator
	EventExpired                    // active session ran out of time
	EventArrival                    // synthetic purchase arrived
	EventMessage                    // chat message appended
)

// Event carries the mutation kind and the stats block as it stood when the
// mutation settled. Safe to retain; Stats is a value copy.
type Event struct {
	Type  EventType
	Kind  Kind
	Plan  string
	Stats Stats
}
