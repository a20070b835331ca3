package sqlstore

import (
	"context"
	"sync"
	"testing"

	domfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInventoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("get unknown product", func(t *testing.T) {
		repo := NewInventoryRepository(newTestDB(t))
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, dominv.ErrNotFound)
	})

	t.Run("save upserts", func(t *testing.T) {
		repo := NewInventoryRepository(newTestDB(t))
		rec, err := dominv.NewRecord("PROD123", 10)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, rec))

		rec.AvailableQuantity = 4
		require.NoError(t, repo.Save(ctx, rec))

		got, err := repo.Get(ctx, "PROD123")
		require.NoError(t, err)
		assert.Equal(t, 4, got.AvailableQuantity)
	})

	t.Run("decrement unknown product", func(t *testing.T) {
		repo := NewInventoryRepository(newTestDB(t))
		_, err := repo.Decrement(ctx, "missing", 1)
		assert.ErrorIs(t, err, dominv.ErrNotFound)
	})

	t.Run("decrement may go negative", func(t *testing.T) {
		repo := NewInventoryRepository(newTestDB(t))
		rec, _ := dominv.NewRecord("PROD123", 2)
		require.NoError(t, repo.Save(ctx, rec))

		remaining, err := repo.Decrement(ctx, "PROD123", 5)
		require.NoError(t, err)
		assert.Equal(t, -3, remaining)
	})

	t.Run("concurrent decrements lose no update", func(t *testing.T) {
		repo := NewInventoryRepository(newTestDB(t))
		rec, _ := dominv.NewRecord("PROD123", 100)
		require.NoError(t, repo.Save(ctx, rec))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Decrement(ctx, "PROD123", 3)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.Get(ctx, "PROD123")
		require.NoError(t, err)
		assert.Equal(t, 40, got.AvailableQuantity)
	})
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))

	o, err := domorder.New("order-1", "PROD123", 2, decimal.RequireFromString("100.50"))
	require.NoError(t, err)
	o.MarkCreated()
	require.NoError(t, repo.Insert(ctx, o))

	got, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCreated, got.Status)
	assert.Equal(t, 2, got.Quantity)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("100.50")))

	assert.ErrorIs(t, repo.Insert(ctx, o), domorder.ErrConflict)

	n, err := repo.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))

	p, err := dompay.New("pay-1", "order-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, p))
	require.NoError(t, p.MarkSucceeded())
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Get(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusSuccess, got.Status)
	assert.Equal(t, "order-1", got.OrderReference)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, dompay.ErrNotFound)
}

func TestAttemptRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAttemptRepository(newTestDB(t))

	a := domfulfillment.NewAttempt("att-1", domfulfillment.Request{ProductID: "PROD123", Quantity: 1, Amount: decimal.NewFromInt(10)})
	require.NoError(t, a.Advance(domfulfillment.StageCheckingInventory))
	a.Record(domfulfillment.StepCheckInventory, domfulfillment.StepRejected, nil)
	require.NoError(t, a.Advance(domfulfillment.StageRejectedInventory))
	a.Outcome = domfulfillment.OutcomeInsufficientInventory
	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, domfulfillment.StageRejectedInventory, got.Stage)
	assert.Equal(t, domfulfillment.OutcomeInsufficientInventory, got.Outcome)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, domfulfillment.StepCheckInventory, got.Steps[0].Name)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domfulfillment.ErrAttemptNotFound)
}
