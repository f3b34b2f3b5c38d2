package shared

// Event is a domain event emitted by an aggregate. Events are the only way
// aggregate state changes; they are appended to a stream by the caller and
// folded back into state before the next command.
//
// Business failures (unknown user, unauthorized revoke, idempotent repeats)
// are events too, so every command leaves an auditable record. Go errors are
// reserved for programming-invariant violations and infrastructure failures.
type Event interface {
	// EventName returns the stable wire name of the event. Names are part of
	// the stored stream format and must never change once events exist.
	EventName() string
}

// FailureEvent is implemented by events that record a failed or rejected
// command. Consumers use it to separate audit-only events from state changes.
type FailureEvent interface {
	Event
	Failure() bool
}
