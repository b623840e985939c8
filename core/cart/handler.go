package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/api/weberr"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/core/product"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		lines, err := FetchLines(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching cart: %w", err)
		}

		c := Cart{
			UserID: clm.UserID,
			Items:  lines,
			Total:  Total(lines),
		}
		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := Delete(ctx, db, clm.UserID); err != nil {
			return fmt.Errorf("deleting cart: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}
		if in.Quantity == 0 {
			in.Quantity = 1
		}

		p, err := product.Fetch(ctx, db, in.ProductID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", in.ProductID, err)
		}

		now := time.Now().UTC()
		it, err := AddItem(ctx, db, Item{
			UserID:    clm.UserID,
			ProductID: p.ID,
			Quantity:  in.Quantity,
			UnitPrice: p.Price,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			if errors.Is(err, ErrQuantityLimit) {
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
			return fmt.Errorf("adding item to cart: %w", err)
		}

		return web.Respond(ctx, w, it, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		productID := web.Param(r, "product_id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := DeleteItem(ctx, db, clm.UserID, productID); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting cart item: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
