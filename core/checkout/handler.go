package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/api/weberr"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/core/order"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type failure struct {
	Error         string       `json:"error"`
	Detail        string       `json:"detail,omitempty"`
	GatewayStatus int          `json:"gatewayStatus,omitempty"`
	OrderID       string       `json:"orderId,omitempty"`
	OrderStatus   order.Status `json:"orderStatus,omitempty"`
}

// webError maps the checkout errors to their HTTP responses.
func webError(err error, res Result) error {
	var (
		gwErr *GatewayError
		ncErr *NotCompletedError
	)

	fields := weberr.WithFields(map[string]interface{}{
		"order_id":   res.OrderID,
		"session_id": res.SessionID,
	})

	switch {
	case errors.Is(err, ErrAuth):
		return weberr.NotAuthorized(err)

	case errors.Is(err, ErrEmptyCart):
		return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)

	case errors.Is(err, ErrOrderNotFound):
		return weberr.NotFound(err)

	case errors.As(err, &gwErr):
		body := failure{
			Error:         "the payment provider could not process the request",
			Detail:        gwErr.Detail,
			GatewayStatus: gwErr.Status,
			OrderID:       res.OrderID,
			OrderStatus:   res.Status,
		}
		return weberr.Wrap(&weberr.RequestError{Err: err}, fields, weberr.WithResponse(body, http.StatusBadGateway))

	case errors.As(err, &ncErr):
		body := failure{
			Error:       "the payment was not completed",
			Detail:      ncErr.Outcome,
			OrderID:     res.OrderID,
			OrderStatus: res.Status,
		}
		return weberr.Wrap(&weberr.RequestError{Err: err}, fields, weberr.WithResponse(body, http.StatusPaymentRequired))
	}

	return err
}

func HandleCheckout(co *Coordinator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(ErrAuth)
		}

		sess, err := co.Initiate(ctx, clm.UserID)
		if err != nil {
			return webError(err, Result{})
		}

		return web.Respond(ctx, w, sess, http.StatusOK)
	}
}

// HandleCapture reconciles the capture of a payment session. The session is
// read from the "id" path parameter or from the "token" query parameter set
// by the provider redirect.
func HandleCapture(co *Coordinator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		sessionID := sessionParam(r)
		if sessionID == "" {
			return weberr.NewError(errors.New("missing payment token"), "missing payment token", http.StatusBadRequest)
		}

		res, err := co.ReconcileCapture(ctx, sessionID)
		if err != nil {
			return webError(err, res)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleCancel(co *Coordinator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		sessionID := sessionParam(r)
		if sessionID == "" {
			return weberr.NewError(errors.New("missing payment token"), "missing payment token", http.StatusBadRequest)
		}

		res, err := co.ReconcileCancel(ctx, sessionID)
		if err != nil {
			return webError(err, res)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func sessionParam(r *http.Request) string {
	if id := web.Param(r, "id"); id != "" {
		return id
	}
	return r.URL.Query().Get("token")
}

// HandleStripeWebhook reconciles the orders bound to Stripe checkout sessions
// from the signed events Stripe delivers.
func HandleStripeWebhook(co *Coordinator, secret string, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, secret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		var reconcile func(context.Context, string) (Result, error)
		switch event.Type {
		case "checkout.session.completed", "checkout.session.async_payment_succeeded":
			reconcile = co.ReconcileCapture
		case "checkout.session.expired", "checkout.session.async_payment_failed":
			reconcile = co.ReconcileCancel
		default:
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		res, err := reconcile(ctx, session.ID)
		switch {
		case errors.Is(err, ErrOrderNotFound):
			// Not ours, acknowledge so Stripe stops retrying.
			log.WithField("session_id", session.ID).Warn("stripe event for an unknown session")
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		case err != nil:
			return webError(err, res)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
