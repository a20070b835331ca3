package order

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
)

var (
	ErrConflict = domain.ErrConflict
	ErrNotFound = domain.ErrNotFound
)

// Service is the order ledger.
type Service struct {
	repo        domain.Repository
	idGenerator IDGenerator
	inst        application.Instrumentation
}

func NewService(repo domain.Repository, idGen IDGenerator, tel observability.Observability) *Service {
	return &Service{
		repo:        repo,
		idGenerator: idGen,
		inst:        application.NewInstrumentation(orderService, tel),
	}
}

// Create marks o as CREATED, assigns an id when it has none and inserts it.
// An order that was already created gets a fresh id, so creating it again
// stores a second, distinct record. Two pending orders sharing a preset id
// fail with ErrConflict.
func (s *Service) Create(ctx context.Context, o *domain.Order) (_ *domain.Order, err error) {
	if o == nil {
		return nil, domain.ErrOrderRequired
	}

	ctx, run := s.inst.Start(ctx, useCaseOrderCreate, "CreateOrder",
		[]attribute.KeyValue{
			attribute.String("order.product_id", o.ProductID),
			attribute.Int("order.quantity", o.Quantity),
		},
		observability.F("product_id", o.ProductID),
		observability.F("quantity", o.Quantity),
		observability.F("amount", o.Amount.String()),
	)
	defer func() {
		run.With(observability.F("order_id", o.ID))
		run.End(err)
	}()

	if o.ID == "" || o.Status == domain.StatusCreated {
		if s.idGenerator == nil {
			run.Fail("ID_GENERATOR_MISSING")
			return nil, fmt.Errorf("order: no id and no id generator")
		}
		o.ID = s.idGenerator.NewID()
	}
	run.Span().SetAttributes(attribute.String("order.id", o.ID))

	o.MarkCreated()
	if err = s.repo.Insert(ctx, o.Clone()); err != nil {
		run.Fail("INSERT_FAILED")
		return nil, fmt.Errorf("order: insert: %w", err)
	}
	return o.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order: get: %w", err)
	}
	return o, nil
}
