package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/jmoiron/sqlx"
)

var sortColumns = map[string]string{
	"name":  "name",
	"price": "price",
}

func Create(ctx context.Context, db sqlx.ExtContext, p Product) error {
	const q = `
	INSERT INTO products
		(product_id, name, description, price, created_at, updated_at)
	VALUES
		(:product_id, :name, :description, :price, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting product: %w", database.Error(err))
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, p Product) error {
	const q = `
	UPDATE products SET
		name = :name,
		description = :description,
		price = :price,
		updated_at = :updated_at
	WHERE product_id = :product_id`

	res, err := sqlx.NamedExecContext(ctx, db, q, p)
	if err != nil {
		return fmt.Errorf("updating product[%s]: %w", p.ID, database.Error(err))
	}
	if err := database.ExpectOne(res); err != nil {
		return fmt.Errorf("updating product[%s]: %w", p.ID, err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM products WHERE product_id = $1`

	res, err := db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deleting product[%s]: %w", id, database.Error(err))
	}
	if err := database.ExpectOne(res); err != nil {
		return fmt.Errorf("deleting product[%s]: %w", id, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	const q = `
	SELECT product_id, name, description, price, created_at, updated_at
	FROM products
	WHERE product_id = $1`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, id); err != nil {
		return Product{}, fmt.Errorf("selecting product[%s]: %w", id, database.Error(err))
	}
	return p, nil
}

func List(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)

	if f.Name != "" {
		args = append(args, "%"+strings.ToLower(f.Name)+"%")
		where = append(where, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	q := `SELECT product_id, name, description, price, created_at, updated_at FROM products`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if f.Order == "desc" {
		dir = "DESC"
	}

	args = append(args, f.Offset, f.Limit)
	q += fmt.Sprintf(" ORDER BY %s %s, product_id OFFSET $%d LIMIT $%d", col, dir, len(args)-1, len(args))

	products := []Product{}
	if err := sqlx.SelectContext(ctx, db, &products, q, args...); err != nil {
		return nil, fmt.Errorf("selecting products: %w", database.Error(err))
	}
	return products, nil
}
