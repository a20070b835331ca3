package fulfillment

import "context"

// AttemptRepository keeps finished attempts for later inspection.
type AttemptRepository interface {
	Save(ctx context.Context, attempt *Attempt) error
	Get(ctx context.Context, id string) (*Attempt, error)
}
