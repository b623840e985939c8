package checkout

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Outcomes reported by a gateway for a payment session.
const (
	OutcomeCreated   = "CREATED"
	OutcomeApproved  = "APPROVED"
	OutcomeCompleted = "COMPLETED"
	OutcomeVoided    = "VOIDED"
	OutcomeExpired   = "EXPIRED"

	// OutcomePending is a payment accepted by the payer but not settled yet.
	// The bound order stays pending until the provider reports it again.
	OutcomePending = "PENDING"
)

// Gateway is the payment provider a Coordinator drives.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (SessionCreated, error)
	CaptureSession(ctx context.Context, sessionID string) (Capture, error)
	SessionStatus(ctx context.Context, sessionID string) (string, error)
}

type Line struct {
	ProductID   string
	Name        string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type SessionRequest struct {
	Reference string
	Lines     []Line
	Total     decimal.Decimal
	Currency  string
	ReturnURL string
	CancelURL string
}

type SessionCreated struct {
	ID          string
	ApprovalURL string
}

type Capture struct {
	Outcome string          `json:"outcome"`
	Details json.RawMessage `json:"details,omitempty"`
}
