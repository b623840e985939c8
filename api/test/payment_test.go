package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	mock "github.com/stripe/stripe-mock/param"
)

type paypalIssue struct {
	Issue       string `json:"issue"`
	Description string `json:"description"`
}

type paypalFailure struct {
	Name    string        `json:"name"`
	Message string        `json:"message"`
	Details []paypalIssue `json:"details"`
}

// mockPaypal serves the subset of the PayPal orders API the gateway uses.
type mockPaypal struct {
	mu sync.Mutex

	expectedItems int
	expectedTotal string
	declineIssue  string

	next     int
	captured map[string]bool
	captures int
}

func newMockPaypal() *mockPaypal {
	return &mockPaypal{captured: make(map[string]bool)}
}

func (m *mockPaypal) expect(items int, total string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedItems = items
	m.expectedTotal = total
}

func (m *mockPaypal) decline(issue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declineIssue = issue
}

func (m *mockPaypal) captureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{
			"access_token": "A21AAtest",
			"token_type":   "Bearer",
			"expires_in":   32400,
		}
		web.Respond(context.Background(), w, tok, http.StatusOK)
	})

	create := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		var pu struct {
			Intent string                       `json:"intent"`
			Units  []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if pu.Intent != "CAPTURE" || len(pu.Units) != 1 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if len(pu.Units[0].Items) != m.expectedItems || pu.Units[0].Amount.Value != m.expectedTotal {
			fail := paypalFailure{
				Name:    "UNPROCESSABLE_ENTITY",
				Message: "unexpected cart",
				Details: []paypalIssue{{Issue: "ITEM_TOTAL_MISMATCH", Description: pu.Units[0].Amount.Value}},
			}
			web.Respond(context.Background(), w, fail, http.StatusUnprocessableEntity)
			return
		}

		m.next++
		id := fmt.Sprintf("PAYPAL-%d", m.next)
		ord := map[string]any{
			"id":     id,
			"status": "CREATED",
			"links": []map[string]string{
				{"href": "https://api.paypal.example/v2/checkout/orders/" + id, "rel": "self", "method": "GET"},
				{"href": "https://www.paypal.example/checkoutnow?token=" + id, "rel": "approve", "method": "GET"},
			},
		}
		web.Respond(context.Background(), w, ord, http.StatusCreated)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		id := mux.Vars(r)["id"]

		if m.declineIssue != "" {
			fail := paypalFailure{
				Name:    "UNPROCESSABLE_ENTITY",
				Message: "The requested action could not be performed.",
				Details: []paypalIssue{{Issue: m.declineIssue, Description: "declined"}},
			}
			web.Respond(context.Background(), w, fail, http.StatusUnprocessableEntity)
			return
		}

		if m.captured[id] {
			fail := paypalFailure{
				Name:    "UNPROCESSABLE_ENTITY",
				Message: "The requested action could not be performed.",
				Details: []paypalIssue{{Issue: "ORDER_ALREADY_CAPTURED", Description: "Order already captured."}},
			}
			web.Respond(context.Background(), w, fail, http.StatusUnprocessableEntity)
			return
		}

		m.captured[id] = true
		m.captures++
		web.Respond(context.Background(), w, map[string]any{"id": id, "status": "COMPLETED"}, http.StatusCreated)
	})

	show := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		id := mux.Vars(r)["id"]
		status := "APPROVED"
		if m.captured[id] {
			status = "COMPLETED"
		}
		web.Respond(context.Background(), w, map[string]any{"id": id, "status": status}, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods(http.MethodPost)
	r.Handle("/v2/checkout/orders", create).Methods(http.MethodPost)
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods(http.MethodPost)
	r.Handle("/v2/checkout/orders/{id}", show).Methods(http.MethodGet)
	return r
}

// mockStripe serves the checkout sessions endpoints of the Stripe API.
type mockStripe struct {
	mu sync.Mutex

	expectedItems int
	expectedTotal decimal.Decimal

	next     int
	sessions map[string]map[string]any
}

func newMockStripe() *mockStripe {
	return &mockStripe{sessions: make(map[string]map[string]any)}
}

func (m *mockStripe) expect(items int, total string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedItems = items
	m.expectedTotal = decimal.RequireFromString(total)
}

func (m *mockStripe) pay(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s["status"] = "complete"
		s["payment_status"] = "paid"
	}
}

func (m *mockStripe) handle() http.Handler {
	create := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, stripeFailure(err.Error()), http.StatusBadRequest)
			return
		}
		lines, ok := params["line_items"].(map[string]any)
		if !ok {
			web.Respond(context.Background(), w, stripeFailure("missing line_items"), http.StatusBadRequest)
			return
		}

		n := 0
		tot := decimal.Zero
		for _, li := range lines {
			it := li.(map[string]any)

			qty, err := strconv.ParseInt(it["quantity"].(string), 10, 64)
			if err != nil {
				web.Respond(context.Background(), w, stripeFailure(err.Error()), http.StatusBadRequest)
				return
			}

			pd := it["price_data"].(map[string]any)
			amount, err := strconv.ParseInt(pd["unit_amount"].(string), 10, 64)
			if err != nil {
				web.Respond(context.Background(), w, stripeFailure(err.Error()), http.StatusBadRequest)
				return
			}

			tot = tot.Add(decimal.New(amount*qty, -2))
			n++
		}

		if n != m.expectedItems || !tot.Equal(m.expectedTotal) {
			web.Respond(context.Background(), w, stripeFailure("unexpected cart"), http.StatusBadRequest)
			return
		}

		m.next++
		id := fmt.Sprintf("cs_test_%d", m.next)
		sess := map[string]any{
			"id":                  id,
			"object":              "checkout.session",
			"url":                 "https://checkout.stripe.example/c/pay/" + id,
			"mode":                "payment",
			"status":              "open",
			"payment_status":      "unpaid",
			"client_reference_id": params["client_reference_id"],
		}
		m.sessions[id] = sess
		web.Respond(context.Background(), w, sess, http.StatusOK)
	})

	show := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		sess, ok := m.sessions[mux.Vars(r)["id"]]
		if !ok {
			web.Respond(context.Background(), w, stripeFailure("No such checkout.session"), http.StatusNotFound)
			return
		}
		web.Respond(context.Background(), w, sess, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", create).Methods(http.MethodPost)
	r.Handle("/v1/checkout/sessions/{id}", show).Methods(http.MethodGet)
	return r
}

func stripeFailure(msg string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"type":    "invalid_request_error",
			"message": msg,
		},
	}
}
