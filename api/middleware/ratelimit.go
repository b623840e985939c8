package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/api/weberr"
	"github.com/irsalhamdi/e-commerce-shop/rate"
)

// RateLimit rejects the callers exceeding the limiter budget, keyed by the
// remote address.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !lim.Check(ip) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
