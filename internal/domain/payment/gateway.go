package payment

import (
	"context"
)

// Gateway is the external party that approves or declines a capture.
// A decline is a normal answer; errors are reserved for transport failures.
type Gateway interface {
	Authorize(ctx context.Context, record *Record) (approved bool, err error)
}
