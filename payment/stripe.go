package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// sessionPlaceholder is replaced by Stripe with the checkout session id when
// redirecting the customer.
const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

type Stripe struct {
	api *stripecl.API
}

// NewStripe builds a gateway on top of an initialized Stripe client.
func NewStripe(api *stripecl.API) *Stripe {
	return &Stripe{api: api}
}

func (s *Stripe) CreateSession(ctx context.Context, req checkout.SessionRequest) (checkout.SessionCreated, error) {
	currency := strings.ToLower(req.Currency)

	li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, l := range req.Lines {
		li = append(li, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(l.Quantity)),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				TaxBehavior: stripe.String("inclusive"),
				UnitAmount:  stripe.Int64(l.UnitPrice.Shift(2).IntPart()),

				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(l.Name),
					Description: stripe.String(l.Description),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(withSession(req.ReturnURL)),
		CancelURL:         stripe.String(req.CancelURL),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.Reference),
		LineItems:         li,
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return checkout.SessionCreated{}, stripeError(err)
	}

	return checkout.SessionCreated{ID: sess.ID, ApprovalURL: sess.URL}, nil
}

// CaptureSession reads back the session: Stripe captures checkout payments on
// its own, a paid session is reported as completed. A completed session still
// waiting for a delayed payment method is reported as pending.
func (s *Stripe) CaptureSession(ctx context.Context, sessionID string) (checkout.Capture, error) {
	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return checkout.Capture{}, err
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return checkout.Capture{}, fmt.Errorf("encoding stripe session[%s]: %w", sessionID, err)
	}

	return checkout.Capture{Outcome: stripeOutcome(sess), Details: raw}, nil
}

func (s *Stripe) SessionStatus(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return stripeOutcome(sess), nil
}

func (s *Stripe) get(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, stripeError(err)
	}
	return sess, nil
}

func stripeOutcome(sess *stripe.CheckoutSession) string {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return checkout.OutcomeCompleted
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return checkout.OutcomeExpired
	case sess.Status == stripe.CheckoutSessionStatusComplete:
		return checkout.OutcomePending
	default:
		return checkout.OutcomeCreated
	}
}

func withSession(successURL string) string {
	if strings.Contains(successURL, sessionPlaceholder) {
		return successURL
	}
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "token=" + sessionPlaceholder
}

func stripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return &checkout.GatewayError{Detail: err.Error(), Err: err}
	}

	status := se.HTTPStatusCode
	if status == 0 {
		status = http.StatusBadGateway
	}

	detail := se.Msg
	if detail == "" {
		detail = string(se.Type)
	}

	return &checkout.GatewayError{Status: status, Detail: detail, Err: err}
}
