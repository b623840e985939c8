package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweep reconciles the orders of the provider left pending for longer than
// olderThan, typically because the provider redirect never reached us. The
// provider is asked for the session state: approved or completed sessions
// are captured, voided or expired ones cancelled, and the rest left pending.
// It returns the number of orders that changed status.
//
// Sessions created by the provider without any local order cannot be listed
// and are not covered.
func (c *Coordinator) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := c.ledger.StalePending(ctx, c.provider, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("listing stale orders: %w", err)
	}

	var n int
	for _, ord := range stale {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		log := c.log.WithFields(logrus.Fields{
			"order_id":   ord.ID,
			"session_id": ord.SessionID,
		})

		state, err := c.gateway.SessionStatus(ctx, ord.SessionID)
		if err != nil {
			var gwErr *GatewayError
			if !errors.As(err, &gwErr) || gwErr.Status != http.StatusNotFound {
				log.WithField("error", err).Warn("sweep: cannot read payment session state")
				continue
			}
			state = OutcomeVoided
		}

		var res Result
		switch state {
		case OutcomeApproved, OutcomeCompleted:
			res, err = c.ReconcileCapture(ctx, ord.SessionID)
		case OutcomeVoided, OutcomeExpired:
			res, err = c.ReconcileCancel(ctx, ord.SessionID)
		default:
			log.WithField("state", state).Debug("sweep: payment session still open")
			continue
		}

		if err != nil {
			log.WithField("error", err).Warn("sweep: reconciliation failed")
		}
		if res.Changed {
			n++
		}
	}

	return n, nil
}
