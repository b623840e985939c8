package cart

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	UserID string          `json:"userId"`
	Items  []Line          `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

type Item struct {
	UserID    string          `json:"-" db:"user_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Line is a cart item joined with the product it refers to.
type Line struct {
	Item
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Subtotal is the unit price times the quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MaxQuantity caps the quantity of a single cart line.
const MaxQuantity = 1000

var ErrQuantityLimit = fmt.Errorf("cart line quantity cannot exceed %d", MaxQuantity)

type ItemNew struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1,lte=1000"`
}

// Total sums the subtotals of lines.
func Total(lines []Line) decimal.Decimal {
	tot := decimal.Zero
	for _, l := range lines {
		tot = tot.Add(l.Subtotal())
	}
	return tot
}
