package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger logs the start and the end of every request. Requests answered
// with a 5xx are logged as warnings.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			log := log

			if rid := ContextRequestID(ctx); rid != "" {
				log = log.WithField("req_id", rid)
			}

			log = log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"remoteaddr": r.RemoteAddr,
			})

			log.Debug("started")
			start := time.Now().UTC()

			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			log = log.WithFields(logrus.Fields{
				"statuscode":  lw.Status(),
				"bytes":       lw.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if lw.Status() >= http.StatusInternalServerError {
				log.Warn("completed")
			} else {
				log.Info("completed")
			}
			return err
		}
		return h
	}
	return m
}
