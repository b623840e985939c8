// Package claims carries the identity of the authenticated caller through
// the request context.
package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

var ErrMissing = errors.New("claims missing from context")

type Claims struct {
	UserID string
	Role   string
}

func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanAccess reports whether the caller may read the resources owned by
// userID: its own, or anyone's for an admin.
func (c Claims) CanAccess(userID string) bool {
	return c.UserID != "" && (c.UserID == userID || c.IsAdmin())
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}
