package fulfillment

import (
	"context"
	"testing"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/shared"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordAndGet(t *testing.T) {
	audit := NewAudit(memory.NewAttemptRepository(), nil)
	ctx := context.Background()

	attempt := domain.NewAttempt("a-1", domain.Request{ProductID: "PROD123", Quantity: 1})
	require.NoError(t, attempt.Advance(domain.StageCheckingInventory))
	attempt.Record(domain.StepCheckInventory, domain.StepRejected, nil)
	require.NoError(t, attempt.Advance(domain.StageRejectedInventory))

	_, err := audit.Execute(ctx, attempt)
	require.NoError(t, err)

	attempt.Record(domain.StepCapturePayment, domain.StepPassed, nil)

	got, err := audit.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageRejectedInventory, got.Stage)
	assert.Len(t, got.Steps, 1, "stored attempt is isolated from later changes")

	_, err = audit.Get(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuditRejectsAnonymousAttempts(t *testing.T) {
	audit := NewAudit(memory.NewAttemptRepository(), nil)
	assert.ErrorIs(t, audit.Record(context.Background(), nil), shared.ErrInvalidArgument)
	assert.ErrorIs(t, audit.Record(context.Background(), &domain.Attempt{}), domain.ErrAttemptIDRequired)
}
