package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
)

func Cors(origin string) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, Content-Length, Accept-Encoding, "+RequestIDHeader)
			w.Header().Set("Access-Control-Max-Age", "86400")

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
