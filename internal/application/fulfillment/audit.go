package fulfillment

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	auditService       = "fulfillment-audit"
	useCaseAuditRecord = "fulfillment.audit.record"
)

// Audit keeps the trail of finished attempts.
type Audit struct {
	repo domain.AttemptRepository
	inst application.Instrumentation
}

func NewAudit(repo domain.AttemptRepository, tel observability.Observability) *Audit {
	return &Audit{
		repo: repo,
		inst: application.NewInstrumentation(auditService, tel),
	}
}

// Execute records attempt.
func (a *Audit) Execute(ctx context.Context, attempt *domain.Attempt) (_ struct{}, err error) {
	return struct{}{}, a.Record(ctx, attempt)
}

func (a *Audit) Record(ctx context.Context, attempt *domain.Attempt) (err error) {
	if attempt == nil || attempt.ID == "" {
		return domain.ErrAttemptIDRequired
	}

	ctx, run := a.inst.Start(ctx, useCaseAuditRecord, "RecordAttempt",
		[]attribute.KeyValue{
			attribute.String("fulfillment.attempt_id", attempt.ID),
			attribute.String("fulfillment.stage", string(attempt.Stage)),
		},
		observability.F("attempt_id", attempt.ID),
		observability.F("stage", string(attempt.Stage)),
	)
	defer func() { run.End(err) }()

	if err = a.repo.Save(ctx, attempt.Clone()); err != nil {
		run.Fail("SAVE_FAILED")
		return fmt.Errorf("fulfillment: save attempt: %w", err)
	}
	return nil
}

func (a *Audit) Get(ctx context.Context, id string) (*domain.Attempt, error) {
	attempt, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fulfillment: get attempt: %w", err)
	}
	return attempt, nil
}
