// Package payment implements the checkout gateways on top of the PayPal and
// Stripe APIs.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/irsalhamdi/e-commerce-shop/config"
	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/plutov/paypal/v4"
)

const issueAlreadyCaptured = "ORDER_ALREADY_CAPTURED"

type Paypal struct {
	client *paypal.Client
}

// NewPaypal builds a gateway from the given credentials. No token is
// requested until the first call.
func NewPaypal(cfg config.Paypal) (*Paypal, error) {
	c, err := paypal.NewClient(cfg.ClientID, cfg.Secret, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	return &Paypal{client: c}, nil
}

// Ping fetches an access token, checking the credentials.
func (p *Paypal) Ping(ctx context.Context) error {
	if _, err := p.client.GetAccessToken(ctx); err != nil {
		return paypalError(err)
	}
	return nil
}

func (p *Paypal) CreateSession(ctx context.Context, req checkout.SessionRequest) (checkout.SessionCreated, error) {
	items := make([]paypal.Item, 0, len(req.Lines))
	for _, l := range req.Lines {
		items = append(items, paypal.Item{
			Quantity:    strconv.Itoa(l.Quantity),
			Name:        l.Name,
			Description: l.Description,

			UnitAmount: &paypal.Money{
				Currency: req.Currency,
				Value:    l.UnitPrice.StringFixed(2),
			},
		})
	}

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.Reference,
		Items:       items,

		Amount: &paypal.PurchaseUnitAmount{
			Currency: req.Currency,
			Value:    req.Total.StringFixed(2),

			Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
				Currency: req.Currency,
				Value:    req.Total.StringFixed(2),
			}},
		},
	}}

	app := &paypal.ApplicationContext{
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	}

	ord, err := p.client.CreateOrder(ctx, "CAPTURE", units, nil, app)
	if err != nil {
		return checkout.SessionCreated{}, paypalError(err)
	}

	if ord.ID == "" {
		return checkout.SessionCreated{}, &checkout.GatewayError{Detail: "paypal order created without id"}
	}

	approve := approvalLink(ord.Links)
	if approve == "" {
		return checkout.SessionCreated{}, &checkout.GatewayError{Detail: fmt.Sprintf("paypal order[%s] has no approval link", ord.ID)}
	}

	return checkout.SessionCreated{ID: ord.ID, ApprovalURL: approve}, nil
}

func (p *Paypal) CaptureSession(ctx context.Context, sessionID string) (checkout.Capture, error) {
	resp, err := p.client.CaptureOrder(ctx, sessionID, paypal.CaptureOrderRequest{})
	if err != nil {
		var pe *paypal.ErrorResponse
		if errors.As(err, &pe) && hasIssue(pe, issueAlreadyCaptured) {
			return p.capturedBefore(ctx, sessionID)
		}
		return checkout.Capture{}, paypalError(err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return checkout.Capture{}, fmt.Errorf("encoding capture of paypal order[%s]: %w", sessionID, err)
	}

	return checkout.Capture{Outcome: resp.Status, Details: raw}, nil
}

// capturedBefore reads back an order whose capture was already performed,
// e.g. when the response of a previous capture got lost.
func (p *Paypal) capturedBefore(ctx context.Context, sessionID string) (checkout.Capture, error) {
	ord, err := p.client.GetOrder(ctx, sessionID)
	if err != nil {
		return checkout.Capture{}, paypalError(err)
	}

	raw, err := json.Marshal(ord)
	if err != nil {
		return checkout.Capture{}, fmt.Errorf("encoding paypal order[%s]: %w", sessionID, err)
	}

	return checkout.Capture{Outcome: ord.Status, Details: raw}, nil
}

func (p *Paypal) SessionStatus(ctx context.Context, sessionID string) (string, error) {
	ord, err := p.client.GetOrder(ctx, sessionID)
	if err != nil {
		return "", paypalError(err)
	}
	return ord.Status, nil
}

func approvalLink(links []paypal.Link) string {
	for _, rel := range []string{"approve", "payer-action"} {
		for _, l := range links {
			if l.Rel == rel {
				return l.Href
			}
		}
	}
	return ""
}

func hasIssue(pe *paypal.ErrorResponse, issue string) bool {
	for _, d := range pe.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

func paypalError(err error) error {
	var pe *paypal.ErrorResponse
	if !errors.As(err, &pe) {
		return &checkout.GatewayError{Detail: err.Error(), Err: err}
	}

	status := http.StatusBadGateway
	if pe.Response != nil {
		status = pe.Response.StatusCode
	}

	detail := pe.Message
	if len(pe.Details) > 0 && pe.Details[0].Issue != "" {
		detail = fmt.Sprintf("%s: %s", pe.Details[0].Issue, pe.Details[0].Description)
	}
	if detail == "" {
		detail = pe.Name
	}

	return &checkout.GatewayError{Status: status, Detail: detail, Err: err}
}
