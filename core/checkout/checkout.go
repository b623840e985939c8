// Package checkout drives an order from the cart contents of a user to a
// terminal payment status, keeping the local orders consistent with the view
// of the payment provider.
//
// An order is created pending once the provider handed out a payment session
// and leaves that state exactly once:
//
//	pending --[capture: COMPLETED]----> completed
//	pending --[capture: PENDING]------> pending
//	pending --[capture: other, error]-> failed
//	pending --[cancel]----------------> cancelled
//
// The provider calls are not part of the local transactions. Replayed
// callbacks are made safe by checking the order status under a row lock
// before acting.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/core/cart"
	"github.com/irsalhamdi/e-commerce-shop/core/order"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Provider string
	Ledger   Ledger
	Gateway  Gateway
	Log      logrus.FieldLogger
	Metrics  *Metrics

	Currency  string
	ReturnURL string
	CancelURL string

	// ClearOrderedOnly restricts the cart cleanup after a completed capture
	// to the products of the captured order. When false the whole cart of
	// the user is flushed, including items added after the checkout started.
	ClearOrderedOnly bool
}

type Coordinator struct {
	provider    string
	ledger      Ledger
	gateway     Gateway
	log         logrus.FieldLogger
	metrics     *Metrics
	currency    string
	returnURL   string
	cancelURL   string
	orderedOnly bool
}

// Session is handed back to the user to approve the payment.
type Session struct {
	OrderID     string `json:"orderId"`
	SessionID   string `json:"sessionId"`
	ApprovalURL string `json:"approvalUrl"`
}

// Result describes the state of an order after a reconciliation attempt.
type Result struct {
	OrderID   string       `json:"orderId"`
	SessionID string       `json:"sessionId"`
	Status    order.Status `json:"status"`
	Changed   bool         `json:"changed"`
	Capture   *Capture     `json:"capture,omitempty"`
}

func New(cfg Config) *Coordinator {
	return &Coordinator{
		provider:    cfg.Provider,
		ledger:      cfg.Ledger,
		gateway:     cfg.Gateway,
		log:         cfg.Log.WithField("provider", cfg.Provider),
		metrics:     cfg.Metrics,
		currency:    cfg.Currency,
		returnURL:   cfg.ReturnURL,
		cancelURL:   cfg.CancelURL,
		orderedOnly: cfg.ClearOrderedOnly,
	}
}

func (c *Coordinator) Provider() string {
	return c.provider
}

// Initiate opens a payment session for the cart of the user and records a
// pending order snapshotting the cart lines. The cart itself is left as is.
func (c *Coordinator) Initiate(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, ErrAuth
	}

	lines, err := c.ledger.CartLines(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("fetching cart of user[%s]: %w", userID, err)
	}
	if len(lines) == 0 {
		return Session{}, ErrEmptyCart
	}

	ord := order.Order{
		ID:         validate.GenerateID(),
		UserID:     userID,
		Provider:   c.provider,
		Status:     order.Pending,
		TotalPrice: cart.Total(lines),
	}

	req := SessionRequest{
		Reference: ord.ID,
		Lines:     make([]Line, 0, len(lines)),
		Total:     ord.TotalPrice,
		Currency:  c.currency,
		ReturnURL: c.returnURL,
		CancelURL: c.cancelURL,
	}
	for _, l := range lines {
		req.Lines = append(req.Lines, Line{
			ProductID:   l.ProductID,
			Name:        l.Name,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	sess, err := c.gateway.CreateSession(ctx, req)
	if err == nil && (sess.ID == "" || sess.ApprovalURL == "") {
		err = &GatewayError{Detail: "payment session created without id or approval link"}
	}
	if err != nil {
		c.metrics.session(c.provider, "error")
		return Session{}, asGatewayError(err)
	}

	now := time.Now().UTC()
	ord.SessionID = sess.ID
	ord.CreatedAt = now
	ord.UpdatedAt = now

	err = c.ledger.Update(ctx, func(st Store) error {
		if err := st.CreateOrder(ctx, ord); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		for _, l := range lines {
			it := order.Item{
				ID:        validate.GenerateID(),
				OrderID:   ord.ID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
			}
			if err := st.CreateItem(ctx, it); err != nil {
				return fmt.Errorf("creating item: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		c.metrics.session(c.provider, "orphaned")
		c.log.WithFields(logrus.Fields{
			"user_id":    userID,
			"session_id": sess.ID,
			"error":      err,
		}).Warn("payment session left without a local order")
		return Session{}, fmt.Errorf("creating the order bound to payment[%s] for user[%s]: %w", sess.ID, userID, err)
	}

	c.metrics.session(c.provider, "created")
	c.log.WithFields(logrus.Fields{
		"order_id":   ord.ID,
		"session_id": sess.ID,
		"total":      ord.TotalPrice.StringFixed(2),
	}).Info("order pending payment")

	return Session{
		OrderID:     ord.ID,
		SessionID:   sess.ID,
		ApprovalURL: sess.ApprovalURL,
	}, nil
}

// ReconcileCapture captures the payment session and moves the bound order to
// completed or failed. An order already out of pending is returned untouched
// without calling the provider.
//
// A failed capture is committed as failed before its error is returned, so
// the Result is meaningful even when the error is not nil. A payment the
// provider reports as pending leaves the order pending and unchanged.
func (c *Coordinator) ReconcileCapture(ctx context.Context, sessionID string) (Result, error) {
	res := Result{SessionID: sessionID}
	var outcome error

	err := c.ledger.Update(ctx, func(st Store) error {
		ord, err := c.lock(ctx, st, sessionID)
		if err != nil {
			return err
		}
		res.OrderID = ord.ID
		res.Status = ord.Status

		if ord.Status.Terminal() {
			return nil
		}

		next := order.Failed
		capt, err := c.gateway.CaptureSession(ctx, sessionID)
		switch {
		case err == nil && capt.Outcome == OutcomePending:
			return nil
		case err != nil:
			outcome = asGatewayError(err)
		case capt.Outcome != OutcomeCompleted:
			outcome = &NotCompletedError{SessionID: sessionID, Outcome: capt.Outcome}
		default:
			next = order.Completed
		}

		up := order.StatusUp{
			ID:        ord.ID,
			Status:    next,
			UpdatedAt: time.Now().UTC(),
		}
		if err := st.UpdateStatus(ctx, up); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}

		if next == order.Completed {
			if err := c.clearCart(ctx, st, ord); err != nil {
				return fmt.Errorf("flushing cart: %w", err)
			}
			res.Capture = &capt
		}

		res.Status = next
		res.Changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("reconciling capture of payment[%s]: %w", sessionID, err)
	}

	c.report("capture", res, outcome)
	return res, outcome
}

// ReconcileCancel moves a pending order to cancelled. Any other status is
// left as is.
func (c *Coordinator) ReconcileCancel(ctx context.Context, sessionID string) (Result, error) {
	res := Result{SessionID: sessionID}

	err := c.ledger.Update(ctx, func(st Store) error {
		ord, err := c.lock(ctx, st, sessionID)
		if err != nil {
			return err
		}
		res.OrderID = ord.ID
		res.Status = ord.Status

		if ord.Status != order.Pending {
			return nil
		}

		up := order.StatusUp{
			ID:        ord.ID,
			Status:    order.Cancelled,
			UpdatedAt: time.Now().UTC(),
		}
		if err := st.UpdateStatus(ctx, up); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}

		res.Status = order.Cancelled
		res.Changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("reconciling cancel of payment[%s]: %w", sessionID, err)
	}

	c.report("cancel", res, nil)
	return res, nil
}

func (c *Coordinator) lock(ctx context.Context, st Store, sessionID string) (order.Order, error) {
	ord, err := st.LockBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return order.Order{}, ErrOrderNotFound
		}
		return order.Order{}, fmt.Errorf("fetching the order bound to payment[%s]: %w", sessionID, err)
	}
	if ord.Provider != c.provider {
		return order.Order{}, ErrOrderNotFound
	}
	return ord, nil
}

func (c *Coordinator) clearCart(ctx context.Context, st Store, ord order.Order) error {
	if !c.orderedOnly {
		return st.FlushCart(ctx, ord.UserID)
	}

	items, err := st.Items(ctx, ord.ID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return st.DeleteCartItems(ctx, ord.UserID, ids)
}

func (c *Coordinator) report(op string, res Result, outcome error) {
	c.metrics.reconciliation(c.provider, res.Status, res.Changed)

	log := c.log.WithFields(logrus.Fields{
		"op":         op,
		"order_id":   res.OrderID,
		"session_id": res.SessionID,
		"status":     res.Status,
	})

	switch {
	case outcome != nil:
		log.WithField("error", outcome).Warn("order reconciled as failed")
	case res.Changed:
		log.Info("order reconciled")
	default:
		log.Debug("order already reconciled")
	}
}
