package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/e-commerce-shop/api"
	"github.com/irsalhamdi/e-commerce-shop/api/background"
	"github.com/irsalhamdi/e-commerce-shop/api/middleware"
	"github.com/irsalhamdi/e-commerce-shop/config"
	"github.com/irsalhamdi/e-commerce-shop/core/auth"
	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/payment"
	"github.com/irsalhamdi/e-commerce-shop/rate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const (
	providerPaypal = "paypal"
	providerStripe = "stripe"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	const prefix = "SHOP"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if err := setupLogger(logger, cfg.Log); err != nil {
		return err
	}

	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	logger.Infof("startup config:\n%s", out)

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		version, err := database.Migrate(db)
		if err != nil {
			return fmt.Errorf("failed to migrate the database: %w", err)
		}
		logger.Infof("database at schema version %d", version)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Auth.SessionTimeout

	issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Expiry, cfg.Rate.LimitRPS)
	defer limiter.Close()

	reg := prometheus.DefaultRegisterer
	httpMetrics := middleware.NewHTTPMetrics(reg)
	checkoutMetrics := checkout.NewMetrics(reg)

	bg := background.New(logger)

	ledger := checkout.NewSQLLedger(db)
	retry := payment.Retry{Max: cfg.Checkout.Retries, Initial: cfg.Checkout.RetryInterval}

	coordinator := func(provider string, gw checkout.Gateway, returnURL, cancelURL string) *checkout.Coordinator {
		return checkout.New(checkout.Config{
			Provider:         provider,
			Ledger:           ledger,
			Gateway:          payment.WithRetry(gw, retry, logger.WithField("provider", provider)),
			Log:              logger,
			Metrics:          checkoutMetrics,
			Currency:         cfg.Checkout.Currency,
			ReturnURL:        returnURL,
			CancelURL:        cancelURL,
			ClearOrderedOnly: cfg.Checkout.ClearOrderedOnly,
		})
	}

	var coordinators []*checkout.Coordinator

	var pp *checkout.Coordinator
	if cfg.Paypal.ClientID != "" {
		gw, err := payment.NewPaypal(cfg.Paypal)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ReadTimeout)
		err = gw.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to get the first paypal access token: %w", err)
		}

		pp = coordinator(providerPaypal, gw, cfg.Checkout.ReturnURL, cfg.Checkout.CancelURL)
		coordinators = append(coordinators, pp)
	} else {
		logger.Warn("paypal checkout disabled: no client id configured")
	}

	var st *checkout.Coordinator
	if cfg.Stripe.APISecret != "" {
		strp := &stripecl.API{}
		strp.Init(cfg.Stripe.APISecret, nil)

		st = coordinator(providerStripe, payment.NewStripe(strp), cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
		coordinators = append(coordinators, st)
	} else {
		logger.Warn("stripe checkout disabled: no api secret configured")
	}

	for _, co := range coordinators {
		co := co
		err := bg.Every("sweep-"+co.Provider(), cfg.Checkout.SweepInterval, func(ctx context.Context) error {
			n, err := co.Sweep(ctx, cfg.Checkout.PendingTTL)
			if n > 0 {
				logger.WithFields(logrus.Fields{
					"provider": co.Provider(),
					"orders":   n,
				}).Info("stale orders reconciled")
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("starting the sweeper of %s: %w", co.Provider(), err)
		}
	}

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:          cfg.Cors.Origin,
		Log:                 logger,
		DB:                  db,
		Session:             sessionManager,
		Issuer:              issuer,
		Paypal:              pp,
		Stripe:              st,
		StripeWebhookSecret: cfg.Stripe.WebhookSecret,
		Limiter:             limiter,
		Metrics:             httpMetrics,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}

func setupLogger(logger *logrus.Logger, cfg config.Log) error {
	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(lvl)

	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}
