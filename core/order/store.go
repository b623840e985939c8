package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/jmoiron/sqlx"
)

// ErrNotPending is returned when a status update targets an order that
// already left the pending state.
var ErrNotPending = errors.New("order is no longer pending")

const selectOrder = `
	SELECT order_id, user_id, provider, session_id, status, total_price, created_at, updated_at
	FROM orders`

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders
		(order_id, user_id, provider, session_id, status, total_price, created_at, updated_at)
	VALUES
		(:order_id, :user_id, :provider, :session_id, :status, :total_price, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", database.Error(err))
	}
	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO order_items
		(item_id, order_id, product_id, quantity, unit_price)
	VALUES
		(:item_id, :order_id, :product_id, :quantity, :unit_price)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting order item: %w", database.Error(err))
	}
	return nil
}

// UpdateStatus moves a pending order to up.Status.
func UpdateStatus(ctx context.Context, db sqlx.ExtContext, up StatusUp) error {
	const q = `
	UPDATE orders SET
		status = :status,
		updated_at = :updated_at
	WHERE order_id = :order_id AND status = 'pending'`

	res, err := sqlx.NamedExecContext(ctx, db, q, up)
	if err != nil {
		return fmt.Errorf("updating status of order[%s]: %w", up.ID, database.Error(err))
	}
	if err := database.ExpectOne(res); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return fmt.Errorf("updating status of order[%s]: %w", up.ID, ErrNotPending)
		}
		return err
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	q := selectOrder + ` WHERE order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, id); err != nil {
		return Order{}, fmt.Errorf("selecting order[%s]: %w", id, database.Error(err))
	}
	return ord, nil
}

func FetchBySession(ctx context.Context, db sqlx.ExtContext, sessionID string) (Order, error) {
	q := selectOrder + ` WHERE session_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, sessionID); err != nil {
		return Order{}, fmt.Errorf("selecting order bound to payment[%s]: %w", sessionID, database.Error(err))
	}
	return ord, nil
}

// LockBySession selects the order bound to the payment session and holds a
// row lock on it until the surrounding transaction ends.
func LockBySession(ctx context.Context, db sqlx.ExtContext, sessionID string) (Order, error) {
	q := selectOrder + ` WHERE session_id = $1 FOR UPDATE`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, sessionID); err != nil {
		return Order{}, fmt.Errorf("locking order bound to payment[%s]: %w", sessionID, database.Error(err))
	}
	return ord, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Order, error) {
	q := selectOrder + ` WHERE user_id = $1 ORDER BY created_at DESC`

	orders := []Order{}
	if err := sqlx.SelectContext(ctx, db, &orders, q, userID); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%s]: %w", userID, database.Error(err))
	}
	return orders, nil
}

// FetchPendingBefore lists the orders of a provider still pending since
// before the given time, oldest first.
func FetchPendingBefore(ctx context.Context, db sqlx.ExtContext, provider string, before time.Time) ([]Order, error) {
	q := selectOrder + ` WHERE provider = $1 AND status = 'pending' AND created_at < $2 ORDER BY created_at`

	orders := []Order{}
	if err := sqlx.SelectContext(ctx, db, &orders, q, provider, before); err != nil {
		return nil, fmt.Errorf("selecting stale %s orders: %w", provider, database.Error(err))
	}
	return orders, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	const q = `
	SELECT item_id, order_id, product_id, quantity, unit_price
	FROM order_items
	WHERE order_id = $1
	ORDER BY product_id`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, orderID); err != nil {
		return nil, fmt.Errorf("selecting items of order[%s]: %w", orderID, database.Error(err))
	}
	return items, nil
}
