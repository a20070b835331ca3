package sqlstore

import (
	"time"

	domfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/shopspring/decimal"
)

type inventoryModel struct {
	ProductID         string `gorm:"primaryKey;size:64"`
	AvailableQuantity int    `gorm:"not null"`
	UpdatedAt         time.Time
}

func (inventoryModel) TableName() string { return "inventory" }

func inventoryFromDomain(r *dominv.Record) *inventoryModel {
	return &inventoryModel{
		ProductID:         r.ProductID,
		AvailableQuantity: r.AvailableQuantity,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (m *inventoryModel) toDomain() *dominv.Record {
	return &dominv.Record{
		ProductID:         m.ProductID,
		AvailableQuantity: m.AvailableQuantity,
		UpdatedAt:         m.UpdatedAt,
	}
}

type orderModel struct {
	ID        string          `gorm:"primaryKey;size:64"`
	ProductID string          `gorm:"size:64;not null;index"`
	Quantity  int             `gorm:"not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status    string          `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (orderModel) TableName() string { return "orders" }

func orderFromDomain(o *domorder.Order) *orderModel {
	return &orderModel{
		ID:        o.ID,
		ProductID: o.ProductID,
		Quantity:  o.Quantity,
		Amount:    o.Amount,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (m *orderModel) toDomain() *domorder.Order {
	return &domorder.Order{
		ID:        m.ID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		Amount:    m.Amount,
		Status:    domorder.Status(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type paymentModel struct {
	ID             string          `gorm:"primaryKey;size:64"`
	OrderReference string          `gorm:"size:64;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status         string          `gorm:"size:16;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (paymentModel) TableName() string { return "payments" }

func paymentFromDomain(r *dompay.Record) *paymentModel {
	return &paymentModel{
		ID:             r.ID,
		OrderReference: r.OrderReference,
		Amount:         r.Amount,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (m *paymentModel) toDomain() *dompay.Record {
	return &dompay.Record{
		ID:             m.ID,
		OrderReference: m.OrderReference,
		Amount:         m.Amount,
		Status:         dompay.Status(m.Status),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type stepModel struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

type attemptModel struct {
	ID         string          `gorm:"primaryKey;size:64"`
	ProductID  string          `gorm:"size:64;index"`
	Quantity   int             `gorm:"not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Stage      string          `gorm:"size:32;not null"`
	Outcome    string          `gorm:"size:32"`
	OrderID    string          `gorm:"size:64"`
	PaymentID  string          `gorm:"size:64"`
	Steps      []stepModel     `gorm:"serializer:json"`
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (attemptModel) TableName() string { return "fulfillment_attempts" }

func attemptFromDomain(a *domfulfillment.Attempt) *attemptModel {
	steps := make([]stepModel, 0, len(a.Steps))
	for _, s := range a.Steps {
		steps = append(steps, stepModel{
			Name:       string(s.Name),
			Status:     string(s.Status),
			Error:      s.Error,
			FinishedAt: s.FinishedAt,
		})
	}
	return &attemptModel{
		ID:         a.ID,
		ProductID:  a.Request.ProductID,
		Quantity:   a.Request.Quantity,
		Amount:     a.Request.Amount,
		Stage:      string(a.Stage),
		Outcome:    string(a.Outcome),
		OrderID:    a.OrderID,
		PaymentID:  a.PaymentID,
		Steps:      steps,
		Error:      a.Error,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
	}
}

func (m *attemptModel) toDomain() *domfulfillment.Attempt {
	steps := make([]domfulfillment.Step, 0, len(m.Steps))
	for _, s := range m.Steps {
		steps = append(steps, domfulfillment.Step{
			Name:       domfulfillment.StepName(s.Name),
			Status:     domfulfillment.StepStatus(s.Status),
			Error:      s.Error,
			FinishedAt: s.FinishedAt,
		})
	}
	return &domfulfillment.Attempt{
		ID: m.ID,
		Request: domfulfillment.Request{
			ProductID: m.ProductID,
			Quantity:  m.Quantity,
			Amount:    m.Amount,
		},
		Stage:      domfulfillment.Stage(m.Stage),
		Outcome:    domfulfillment.Outcome(m.Outcome),
		OrderID:    m.OrderID,
		PaymentID:  m.PaymentID,
		Steps:      steps,
		Error:      m.Error,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}
