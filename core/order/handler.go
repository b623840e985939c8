package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/api/weberr"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleListByUser(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		orders, err := FetchByUser(ctx, db, userID)
		if err != nil {
			return fmt.Errorf("listing orders of user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}
		if !clm.CanAccess(ord.UserID) {
			return weberr.NotFound(fmt.Errorf("order[%s] does not belong to the user", id))
		}

		items, err := FetchItems(ctx, db, id)
		if err != nil {
			return fmt.Errorf("fetching items of order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, OrderFull{Order: ord, Items: items}, http.StatusOK)
	}
}
