package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/random"
)

const (
	RequestIDHeader = "X-Request-Id"

	DefaultRequestIDLengthLimit = 128
)

type reqIDKeyCtx int

const reqIDKey reqIDKeyCtx = 1

var reqID int64

var reqPrefix = newPrefix()

func newPrefix() string {
	p, err := random.StringSecure(10)
	if err != nil {
		return "shop"
	}
	return p
}

// RequestID tags the request with the id sent by the caller, or with a
// process unique one, and echoes it back in the response headers.
func RequestID() web.Middleware {
	lengthLimit := DefaultRequestIDLengthLimit
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = fmt.Sprintf("%s-%d", reqPrefix, atomic.AddInt64(&reqID, 1))
			} else if lengthLimit >= 0 && len(id) > lengthLimit {
				id = id[:lengthLimit]
			}
			ctx = context.WithValue(ctx, reqIDKey, id)
			w.Header().Set(RequestIDHeader, id)

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func ContextRequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}
