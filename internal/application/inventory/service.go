package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService = "inventory-service"
	useCaseCheck     = "inventory.check_availability"
	useCaseDeduct    = "inventory.deduct"
	useCaseRestock   = "inventory.restock"
)

// Service is the inventory ledger: availability queries and stock movements.
type Service struct {
	repo dominv.Repository
	inst application.Instrumentation
}

func NewService(repo dominv.Repository, tel observability.Observability) *Service {
	return &Service{
		repo: repo,
		inst: application.NewInstrumentation(inventoryService, tel),
	}
}

// CheckAvailability reports whether quantity units of productID are on hand.
// An unknown product is simply unavailable.
func (s *Service) CheckAvailability(ctx context.Context, productID string, quantity int) (available bool, err error) {
	ctx, run := s.inst.Start(ctx, useCaseCheck, "CheckAvailability",
		[]attribute.KeyValue{
			attribute.String("product.id", productID),
			attribute.Int("inventory.quantity_requested", quantity),
		},
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
	)
	defer func() {
		run.With(observability.F("available", available))
		run.End(err)
	}()

	if productID == "" {
		run.Fail("PRODUCT_ID_REQUIRED")
		return false, dominv.ErrProductIDRequired
	}

	record, err := s.repo.Get(ctx, productID)
	if errors.Is(err, dominv.ErrNotFound) {
		run.Set(application.OutcomeRejected, "NOT_FOUND")
		return false, nil
	}
	if err != nil {
		run.Fail("LOOKUP_FAILED")
		return false, fmt.Errorf("inventory: get: %w", err)
	}

	if !record.Covers(quantity) {
		run.Set(application.OutcomeRejected, "INSUFFICIENT")
		run.With(observability.F("available_quantity", record.AvailableQuantity))
		return false, nil
	}
	return true, nil
}

// Deduct subtracts quantity from productID. It does not re-check sufficiency, so a
// concurrent deduction between check and deduct can leave the stock negative.
func (s *Service) Deduct(ctx context.Context, productID string, quantity int) (err error) {
	ctx, run := s.inst.Start(ctx, useCaseDeduct, "Deduct",
		[]attribute.KeyValue{
			attribute.String("product.id", productID),
			attribute.Int("inventory.quantity", quantity),
		},
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
	)
	defer func() { run.End(err) }()

	if productID == "" {
		run.Fail("PRODUCT_ID_REQUIRED")
		return dominv.ErrProductIDRequired
	}

	remaining, err := s.repo.Decrement(ctx, productID, quantity)
	if err != nil {
		if errors.Is(err, dominv.ErrNotFound) {
			run.Fail("NOT_FOUND")
		} else {
			run.Fail("DECREMENT_FAILED")
		}
		return fmt.Errorf("inventory: decrement: %w", err)
	}

	run.With(observability.F("remaining_quantity", remaining))
	if remaining < 0 {
		run.Logger().Warn("inventory_oversold",
			observability.F("product_id", productID),
			observability.F("remaining_quantity", remaining),
		)
	}
	return nil
}

// Get returns the current record for productID.
func (s *Service) Get(ctx context.Context, productID string) (*dominv.Record, error) {
	if productID == "" {
		return nil, dominv.ErrProductIDRequired
	}
	record, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("inventory: get: %w", err)
	}
	return record, nil
}

// Restock sets the available quantity of productID, creating the record if needed.
func (s *Service) Restock(ctx context.Context, productID string, quantity int) (_ *dominv.Record, err error) {
	ctx, run := s.inst.Start(ctx, useCaseRestock, "Restock",
		[]attribute.KeyValue{
			attribute.String("product.id", productID),
			attribute.Int("inventory.quantity", quantity),
		},
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
	)
	defer func() { run.End(err) }()

	record, err := dominv.NewRecord(productID, quantity)
	if err != nil {
		run.Fail("INVALID_RECORD")
		return nil, err
	}
	if err = s.repo.Save(ctx, record); err != nil {
		run.Fail("SAVE_FAILED")
		return nil, fmt.Errorf("inventory: save: %w", err)
	}
	return record.Clone(), nil
}

// Seed restocks every entry of levels, stopping at the first failure.
func (s *Service) Seed(ctx context.Context, levels map[string]int) error {
	for productID, quantity := range levels {
		if _, err := s.Restock(ctx, productID, quantity); err != nil {
			return fmt.Errorf("inventory: seed %q: %w", productID, err)
		}
	}
	return nil
}
