package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/sirupsen/logrus"
)

type Retry struct {
	Max     uint64
	Initial time.Duration
}

type retrying struct {
	checkout.Gateway
	policy Retry
	log    logrus.FieldLogger
}

// WithRetry retries the capture and status calls of gw with an exponential
// backoff when the provider is unreachable or fails with a 5xx. Session
// creation is passed through untouched: a retried creation could leave
// unpaid sessions behind on the provider.
func WithRetry(gw checkout.Gateway, policy Retry, log logrus.FieldLogger) checkout.Gateway {
	if policy.Max == 0 {
		return gw
	}
	return &retrying{Gateway: gw, policy: policy, log: log}
}

func (g *retrying) CaptureSession(ctx context.Context, sessionID string) (checkout.Capture, error) {
	var capt checkout.Capture
	op := func() error {
		var err error
		capt, err = g.Gateway.CaptureSession(ctx, sessionID)
		return retryable(err)
	}

	if err := backoff.RetryNotify(op, g.backoff(ctx), g.notify("capture", sessionID)); err != nil {
		return checkout.Capture{}, err
	}
	return capt, nil
}

func (g *retrying) SessionStatus(ctx context.Context, sessionID string) (string, error) {
	var state string
	op := func() error {
		var err error
		state, err = g.Gateway.SessionStatus(ctx, sessionID)
		return retryable(err)
	}

	if err := backoff.RetryNotify(op, g.backoff(ctx), g.notify("status", sessionID)); err != nil {
		return "", err
	}
	return state, nil
}

func (g *retrying) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if g.policy.Initial > 0 {
		b.InitialInterval = g.policy.Initial
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, g.policy.Max), ctx)
}

func (g *retrying) notify(op string, sessionID string) backoff.Notify {
	return func(err error, wait time.Duration) {
		g.log.WithFields(logrus.Fields{
			"op":         op,
			"session_id": sessionID,
			"wait":       wait,
			"error":      err,
		}).Warn("payment gateway call failed, retrying")
	}
}

// retryable marks as permanent every error a retry cannot fix.
func retryable(err error) error {
	if err == nil {
		return nil
	}

	var gwErr *checkout.GatewayError
	if errors.As(err, &gwErr) && (gwErr.Status == 0 || gwErr.Status >= http.StatusInternalServerError) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Permanent(err)
}
