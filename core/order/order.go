package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
	Failed    Status = "failed"
)

// Terminal reports whether no further transition can leave the status.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

type Order struct {
	ID         string          `json:"id" db:"order_id"`
	UserID     string          `json:"userId" db:"user_id"`
	Provider   string          `json:"provider" db:"provider"`
	SessionID  string          `json:"sessionId" db:"session_id"`
	Status     Status          `json:"status" db:"status"`
	TotalPrice decimal.Decimal `json:"totalPrice" db:"total_price"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

type StatusUp struct {
	ID        string    `db:"order_id"`
	Status    Status    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Item struct {
	ID        string          `json:"id" db:"item_id"`
	OrderID   string          `json:"orderId" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
}

type OrderFull struct {
	Order
	Items []Item `json:"items"`
}
