package user

import (
	"time"

	"github.com/irsalhamdi/e-commerce-shop/core/claims"
)

type User struct {
	ID           string    `json:"id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == claims.RoleAdmin
}

type UserNew struct {
	Username string `json:"username" validate:"required,max=32"`
	Email    string `json:"email" validate:"required,email,max=64"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

type UserUp struct {
	Username *string `json:"username" validate:"omitempty,max=32"`
	Email    *string `json:"email" validate:"omitempty,email,max=64"`
	Password *string `json:"password" validate:"omitempty,min=4,max=72"`
}

type UserRename struct {
	Username string `json:"username" validate:"required,max=32"`
}

type Filter struct {
	Name   string
	SortBy string `validate:"oneof=id username email role"`
	Order  string `validate:"oneof=asc desc"`
	Offset int    `validate:"gte=0"`
	Limit  int    `validate:"gte=1,lte=25"`
}
