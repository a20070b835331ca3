package fulfillment

import "time"

// AttemptFinishedEvent is emitted once per attempt, whatever the outcome.
type AttemptFinishedEvent struct {
	Attempt    Attempt
	OccurredAt time.Time
}

func (AttemptFinishedEvent) EventName() string { return "fulfillment.attempt_finished" }

func NewAttemptFinishedEvent(a *Attempt) AttemptFinishedEvent {
	return AttemptFinishedEvent{
		Attempt:    *a.Clone(),
		OccurredAt: time.Now().UTC(),
	}
}
