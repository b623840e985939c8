package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/api/weberr"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func HashPassword(pass string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
}

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		u, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching current user: %w", err)
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleUpdateCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up UserUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		u, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching current user: %w", err)
		}

		if up.Username != nil {
			u.Username = *up.Username
		}
		if up.Email != nil {
			u.Email = *up.Email
		}
		if up.Password != nil {
			hash, err := HashPassword(*up.Password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			u.PasswordHash = hash
		}
		u.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, u); err != nil {
			if errors.Is(err, database.ErrDBDuplicatedEntry) {
				return weberr.NewError(err, "email already in use", http.StatusConflict)
			}
			return fmt.Errorf("updating current user: %w", err)
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleDeleteCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		return deleteUser(ctx, w, db, clm.UserID)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f := Filter{
			Name:   r.URL.Query().Get("name"),
			SortBy: web.QueryString(r, "sort_by", "id"),
			Order:  web.QueryString(r, "order", "asc"),
		}

		var err error
		if f.Offset, err = web.QueryInt(r, "offset", 0); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}
		if f.Limit, err = web.QueryInt(r, "limit", 10); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := validate.Check(f); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		users, err := List(ctx, db, f)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}

		return web.Respond(ctx, w, users, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		var rn UserRename
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(rn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		u, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching user[%s]: %w", id, err)
		}

		u.Username = rn.Username
		u.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, u); err != nil {
			return fmt.Errorf("updating user[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		return deleteUser(ctx, w, db, id)
	}
}

func deleteUser(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, id string) error {
	if err := Delete(ctx, db, id); err != nil {
		switch {
		case errors.Is(err, database.ErrDBNotFound):
			return weberr.NotFound(err)
		case errors.Is(err, database.ErrDBReferenced):
			return weberr.NewError(err, "the user has orders and cannot be deleted", http.StatusConflict)
		}
		return fmt.Errorf("deleting user[%s]: %w", id, err)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
