package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// AddItem inserts the item or, when the product is already in the cart,
// increments its quantity keeping the unit price recorded first. An increment
// past MaxQuantity leaves the line as is and returns ErrQuantityLimit.
func AddItem(ctx context.Context, db sqlx.ExtContext, it Item) (Item, error) {
	const q = `
	INSERT INTO cart_items
		(user_id, product_id, quantity, unit_price, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, product_id) DO UPDATE SET
		quantity = cart_items.quantity + EXCLUDED.quantity,
		updated_at = EXCLUDED.updated_at
	WHERE cart_items.quantity + EXCLUDED.quantity <= $7
	RETURNING user_id, product_id, quantity, unit_price, created_at, updated_at`

	var out Item
	err := sqlx.GetContext(ctx, db, &out, q,
		it.UserID, it.ProductID, it.Quantity, it.UnitPrice, it.CreatedAt, it.UpdatedAt, MaxQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrQuantityLimit
	}
	if err != nil {
		return Item{}, fmt.Errorf("upserting cart item[%s]: %w", it.ProductID, database.Error(err))
	}
	return out, nil
}

func FetchLines(ctx context.Context, db sqlx.ExtContext, userID string) ([]Line, error) {
	const q = `
	SELECT
		c.user_id, c.product_id, c.quantity, c.unit_price, c.created_at, c.updated_at,
		p.name, p.description
	FROM cart_items AS c
	JOIN products AS p ON p.product_id = c.product_id
	WHERE c.user_id = $1
	ORDER BY c.created_at, c.product_id`

	lines := []Line{}
	if err := sqlx.SelectContext(ctx, db, &lines, q, userID); err != nil {
		return nil, fmt.Errorf("selecting cart of user[%s]: %w", userID, database.Error(err))
	}
	return lines, nil
}

func DeleteItem(ctx context.Context, db sqlx.ExtContext, userID string, productID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	res, err := db.ExecContext(ctx, q, userID, productID)
	if err != nil {
		return fmt.Errorf("deleting cart item[%s]: %w", productID, database.Error(err))
	}
	if err := database.ExpectOne(res); err != nil {
		return fmt.Errorf("deleting cart item[%s]: %w", productID, err)
	}
	return nil
}

// DeleteItems removes the listed products from the user's cart.
func DeleteItems(ctx context.Context, db sqlx.ExtContext, userID string, productIDs []string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`

	if _, err := db.ExecContext(ctx, q, userID, pq.Array(productIDs)); err != nil {
		return fmt.Errorf("deleting %d cart items: %w", len(productIDs), database.Error(err))
	}
	return nil
}

// Delete flushes the whole cart of the user.
func Delete(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("flushing cart of user[%s]: %w", userID, database.Error(err))
	}
	return nil
}
