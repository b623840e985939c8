package checkout

import (
	"context"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/core/cart"
	"github.com/irsalhamdi/e-commerce-shop/core/order"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/jmoiron/sqlx"
)

// Ledger holds the carts and orders a Coordinator reconciles.
type Ledger interface {
	CartLines(ctx context.Context, userID string) ([]cart.Line, error)
	StalePending(ctx context.Context, provider string, before time.Time) ([]order.Order, error)

	// Update runs fn as one atomic unit: every write made through the Store
	// is committed when fn returns nil and discarded otherwise.
	Update(ctx context.Context, fn func(Store) error) error
}

// Store is the set of operations available inside a Ledger unit.
type Store interface {
	CreateOrder(ctx context.Context, ord order.Order) error
	CreateItem(ctx context.Context, it order.Item) error
	LockBySession(ctx context.Context, sessionID string) (order.Order, error)
	Items(ctx context.Context, orderID string) ([]order.Item, error)
	UpdateStatus(ctx context.Context, up order.StatusUp) error
	FlushCart(ctx context.Context, userID string) error
	DeleteCartItems(ctx context.Context, userID string, productIDs []string) error
}

type sqlLedger struct {
	db *sqlx.DB
}

func NewSQLLedger(db *sqlx.DB) Ledger {
	return &sqlLedger{db: db}
}

func (l *sqlLedger) CartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	return cart.FetchLines(ctx, l.db, userID)
}

func (l *sqlLedger) StalePending(ctx context.Context, provider string, before time.Time) ([]order.Order, error) {
	return order.FetchPendingBefore(ctx, l.db, provider, before)
}

func (l *sqlLedger) Update(ctx context.Context, fn func(Store) error) error {
	return database.Transaction(ctx, l.db, func(tx sqlx.ExtContext) error {
		return fn(sqlStore{tx: tx})
	})
}

type sqlStore struct {
	tx sqlx.ExtContext
}

func (s sqlStore) CreateOrder(ctx context.Context, ord order.Order) error {
	return order.Create(ctx, s.tx, ord)
}

func (s sqlStore) CreateItem(ctx context.Context, it order.Item) error {
	return order.CreateItem(ctx, s.tx, it)
}

func (s sqlStore) LockBySession(ctx context.Context, sessionID string) (order.Order, error) {
	return order.LockBySession(ctx, s.tx, sessionID)
}

func (s sqlStore) Items(ctx context.Context, orderID string) ([]order.Item, error) {
	return order.FetchItems(ctx, s.tx, orderID)
}

func (s sqlStore) UpdateStatus(ctx context.Context, up order.StatusUp) error {
	return order.UpdateStatus(ctx, s.tx, up)
}

func (s sqlStore) FlushCart(ctx context.Context, userID string) error {
	return cart.Delete(ctx, s.tx, userID)
}

func (s sqlStore) DeleteCartItems(ctx context.Context, userID string, productIDs []string) error {
	return cart.DeleteItems(ctx, s.tx, userID, productIDs)
}
