package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/api/weberr"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()

	f := Filter{
		Name:   q.Get("name"),
		SortBy: web.QueryString(r, "sort_by", "name"),
		Order:  web.QueryString(r, "order", "asc"),
	}

	var err error
	if f.Offset, err = web.QueryInt(r, "offset", 0); err != nil {
		return Filter{}, err
	}
	if f.Limit, err = web.QueryInt(r, "limit", 10); err != nil {
		return Filter{}, err
	}

	for key, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Filter{}, fmt.Errorf("%s is not a valid amount", key)
		}
		if d.IsNegative() {
			return Filter{}, fmt.Errorf("%s must not be negative", key)
		}
		*dst = &d
	}

	if err := validate.Check(f); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func checkPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return errors.New("price must not be negative")
	}
	if !p.Equal(p.Round(2)) {
		return errors.New("price supports at most two decimal places")
	}
	return nil
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f, err := parseFilter(r)
		if err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		products, err := List(ctx, db, f)
		if err != nil {
			return fmt.Errorf("listing products: %w", err)
		}

		return web.Respond(ctx, w, products, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		p, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var pn ProductNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}
		if err := checkPrice(pn.Price); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		now := time.Now().UTC()
		p := Product{
			ID:          validate.GenerateID(),
			Name:        pn.Name,
			Description: pn.Description,
			Price:       pn.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, p); err != nil {
			return fmt.Errorf("creating product: %w", err)
		}

		return web.Respond(ctx, w, p, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		var pu ProductUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		p, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		if pu.Name != nil {
			p.Name = *pu.Name
		}
		if pu.Description != nil {
			p.Description = *pu.Description
		}
		if pu.Price != nil {
			if err := checkPrice(*pu.Price); err != nil {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			p.Price = *pu.Price
		}
		p.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, p); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := Delete(ctx, db, id); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
