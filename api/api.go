// Package api wires the HTTP routes of the shop.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-shop/api/middleware"
	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/core/auth"
	"github.com/irsalhamdi/e-commerce-shop/core/cart"
	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/irsalhamdi/e-commerce-shop/core/order"
	"github.com/irsalhamdi/e-commerce-shop/core/product"
	"github.com/irsalhamdi/e-commerce-shop/core/user"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/rate"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin          string
	Log                 logrus.FieldLogger
	DB                  *sqlx.DB
	Session             *scs.SessionManager
	Issuer              *auth.Issuer
	Paypal              *checkout.Coordinator
	Stripe              *checkout.Coordinator
	StripeWebhookSecret string
	Limiter             *rate.Limiter
	Metrics             *middleware.HTTPMetrics
	Gatherer            prometheus.Gatherer
}

type api struct {
	*mux.Router
	mw      []web.Middleware
	log     logrus.FieldLogger
	metrics *middleware.HTTPMetrics
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router:  mux.NewRouter(),
		log:     cfg.Log,
		metrics: cfg.Metrics,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session, cfg.Issuer)
	admin := auth.Admin(cfg.Session, cfg.Issuer)

	var limit web.Middleware
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter)
	}

	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	a.Router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	a.Handle(http.MethodPost, "/auth/register", auth.HandleRegister(cfg.DB), limit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session, cfg.Issuer), limit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateCurrent(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/users/current", user.HandleDeleteCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users", user.HandleList(cfg.DB), admin)
	a.Handle(http.MethodPut, "/users/{id}", user.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/users/{id}", user.HandleDelete(cfg.DB), admin)
	a.Handle(http.MethodGet, "/users/{id}/orders", order.HandleListByUser(cfg.DB), admin)

	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/products/{id}", product.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.DB), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart/items/{product_id}", cart.HandleDeleteItem(cfg.DB), authen)

	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)

	if cfg.Paypal != nil {
		a.Handle(http.MethodPost, "/orders/paypal", checkout.HandleCheckout(cfg.Paypal), authen)
		a.Handle(http.MethodGet, "/orders/paypal/capture", checkout.HandleCapture(cfg.Paypal))
		a.Handle(http.MethodPost, "/orders/paypal/{id}/capture", checkout.HandleCapture(cfg.Paypal), authen)
		a.Handle(http.MethodGet, "/orders/paypal/cancel", checkout.HandleCancel(cfg.Paypal))
	}

	if cfg.Stripe != nil {
		a.Handle(http.MethodPost, "/orders/stripe", checkout.HandleCheckout(cfg.Stripe), authen)
		a.Handle(http.MethodGet, "/orders/stripe/capture", checkout.HandleCapture(cfg.Stripe))
		a.Handle(http.MethodPost, "/orders/stripe/capture", checkout.HandleStripeWebhook(cfg.Stripe, cfg.StripeWebhookSecret, cfg.Log))
	}

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	if a.metrics != nil {
		handler = middleware.Metrics(a.metrics, method, path)(handler)
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		status := struct {
			Status string `json:"status"`
		}{Status: "ok"}

		code := http.StatusOK
		if err := database.StatusCheck(ctx, db); err != nil {
			status.Status = "db not ready"
			code = http.StatusInternalServerError
		}

		return web.Respond(ctx, w, status, code)
	}
}
