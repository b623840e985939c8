package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id" db:"product_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

type ProductNew struct {
	Name        string          `json:"name" validate:"required,max=32"`
	Description string          `json:"description" validate:"required,max=256"`
	Price       decimal.Decimal `json:"price"`
}

type ProductUp struct {
	Name        *string          `json:"name" validate:"omitempty,max=32"`
	Description *string          `json:"description" validate:"omitempty,max=256"`
	Price       *decimal.Decimal `json:"price"`
}

// Filter narrows and orders a product listing.
type Filter struct {
	Name     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string `validate:"oneof=name price"`
	Order    string `validate:"oneof=asc desc"`
	Offset   int    `validate:"gte=0"`
	Limit    int    `validate:"gte=1,lte=25"`
}
