package checkout_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/core/cart"
	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/irsalhamdi/e-commerce-shop/core/order"
	"github.com/irsalhamdi/e-commerce-shop/database"
)

// memLedger keeps the carts and orders in memory. Units are serialized by
// a single lock, which stands for the row lock of the SQL ledger.
type memLedger struct {
	mu     sync.Mutex
	carts  map[string][]cart.Line
	orders map[string]order.Order
	items  map[string][]order.Item

	failCreate error
}

func newMemLedger() *memLedger {
	return &memLedger{
		carts:  make(map[string][]cart.Line),
		orders: make(map[string]order.Order),
		items:  make(map[string][]order.Item),
	}
}

func (l *memLedger) addToCart(userID, productID, name string, qty int, price string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.carts[userID] = append(l.carts[userID], cart.Line{
		Item: cart.Item{
			UserID:    userID,
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: dec(price),
		},
		Name: name,
	})
}

func (l *memLedger) cart(userID string) []cart.Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]cart.Line(nil), l.carts[userID]...)
}

func (l *memLedger) order(id string) (order.Order, []order.Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	return o, append([]order.Item(nil), l.items[id]...), ok
}

func (l *memLedger) orderCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

func (l *memLedger) CartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	return l.cart(userID), nil
}

func (l *memLedger) StalePending(ctx context.Context, provider string, before time.Time) ([]order.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []order.Order
	for _, o := range l.orders {
		if o.Provider == provider && o.Status == order.Pending && !o.CreatedAt.After(before) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (l *memLedger) Update(ctx context.Context, fn func(checkout.Store) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	carts, orders, items := l.snapshot()
	if err := fn(memStore{l}); err != nil {
		l.carts, l.orders, l.items = carts, orders, items
		return err
	}
	return nil
}

func (l *memLedger) snapshot() (map[string][]cart.Line, map[string]order.Order, map[string][]order.Item) {
	carts := make(map[string][]cart.Line, len(l.carts))
	for k, v := range l.carts {
		carts[k] = append([]cart.Line(nil), v...)
	}
	orders := make(map[string]order.Order, len(l.orders))
	for k, v := range l.orders {
		orders[k] = v
	}
	items := make(map[string][]order.Item, len(l.items))
	for k, v := range l.items {
		items[k] = append([]order.Item(nil), v...)
	}
	return carts, orders, items
}

type memStore struct {
	l *memLedger
}

func (s memStore) CreateOrder(ctx context.Context, ord order.Order) error {
	if s.l.failCreate != nil {
		return s.l.failCreate
	}
	for _, o := range s.l.orders {
		if o.SessionID == ord.SessionID {
			return database.ErrDBDuplicatedEntry
		}
	}
	s.l.orders[ord.ID] = ord
	return nil
}

func (s memStore) CreateItem(ctx context.Context, it order.Item) error {
	if _, ok := s.l.orders[it.OrderID]; !ok {
		return errors.New("order does not exist")
	}
	s.l.items[it.OrderID] = append(s.l.items[it.OrderID], it)
	return nil
}

func (s memStore) LockBySession(ctx context.Context, sessionID string) (order.Order, error) {
	for _, o := range s.l.orders {
		if o.SessionID == sessionID {
			return o, nil
		}
	}
	return order.Order{}, database.ErrDBNotFound
}

func (s memStore) Items(ctx context.Context, orderID string) ([]order.Item, error) {
	return append([]order.Item(nil), s.l.items[orderID]...), nil
}

func (s memStore) UpdateStatus(ctx context.Context, up order.StatusUp) error {
	o, ok := s.l.orders[up.ID]
	if !ok {
		return database.ErrDBNotFound
	}
	if o.Status != order.Pending {
		return order.ErrNotPending
	}
	o.Status = up.Status
	o.UpdatedAt = up.UpdatedAt
	s.l.orders[up.ID] = o
	return nil
}

func (s memStore) FlushCart(ctx context.Context, userID string) error {
	delete(s.l.carts, userID)
	return nil
}

func (s memStore) DeleteCartItems(ctx context.Context, userID string, productIDs []string) error {
	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}

	var keep []cart.Line
	for _, l := range s.l.carts[userID] {
		if !drop[l.ProductID] {
			keep = append(keep, l)
		}
	}
	s.l.carts[userID] = keep
	return nil
}
