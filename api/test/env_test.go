package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/e-commerce-shop/api"
	"github.com/irsalhamdi/e-commerce-shop/config"
	"github.com/irsalhamdi/e-commerce-shop/core/auth"
	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/core/user"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/payment"
	"github.com/irsalhamdi/e-commerce-shop/rate"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type TestEnv struct {
	*httptest.Server
	DB *sqlx.DB

	UserEmail  string
	UserPass   string
	AdminEmail string
	AdminPass  string

	WebhookSecret string

	Paypal *mockPaypal
	Stripe *mockStripe
}

// NewTestEnv starts a Postgres container, migrates it and serves the API
// against mocked payment providers. It is skipped in short mode.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, err := startDB(t, name)
	if err != nil {
		return nil, err
	}

	env := &TestEnv{
		DB:            db,
		UserEmail:     "a@gmail.com",
		UserPass:      "1234",
		AdminEmail:    "admin@gmail.com",
		AdminPass:     "admin-pass",
		WebhookSecret: "whsec_" + name,
		Paypal:        newMockPaypal(),
		Stripe:        newMockStripe(),
	}

	if err := env.createUser("a", env.UserEmail, env.UserPass, claims.RoleUser); err != nil {
		return nil, err
	}
	if err := env.createUser("admin", env.AdminEmail, env.AdminPass, claims.RoleAdmin); err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	ppSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(ppSrv.Close)
	stSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stSrv.Close)

	pp, err := payment.NewPaypal(config.Paypal{ClientID: "client", Secret: "secret", URL: ppSrv.URL})
	if err != nil {
		return nil, err
	}

	strp := &stripecl.API{}
	strp.Init("sk_test_123", &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:           stripe.String(stSrv.URL),
			LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
		}),
	})

	stripeCfg := config.Stripe{
		WebhookSecret: env.WebhookSecret,
		SuccessURL:    "http://localhost/orders/stripe/capture",
		CancelURL:     "http://localhost/cart",
	}

	ledger := checkout.NewSQLLedger(db)
	metrics := checkout.NewMetrics(prometheus.NewRegistry())
	retry := payment.Retry{Max: 2, Initial: time.Millisecond}

	paypalCo := checkout.New(checkout.Config{
		Provider:  "paypal",
		Ledger:    ledger,
		Gateway:   payment.WithRetry(pp, retry, log),
		Log:       log,
		Metrics:   metrics,
		Currency:  "USD",
		ReturnURL: "http://localhost/orders/paypal/capture",
		CancelURL: "http://localhost/orders/paypal/cancel",
	})

	stripeCo := checkout.New(checkout.Config{
		Provider:  "stripe",
		Ledger:    ledger,
		Gateway:   payment.WithRetry(payment.NewStripe(strp), retry, log),
		Log:       log,
		Metrics:   metrics,
		Currency:  "USD",
		ReturnURL: stripeCfg.SuccessURL,
		CancelURL: stripeCfg.CancelURL,
	})

	limiter := rate.NewLimiter(100, time.Minute, 100)
	t.Cleanup(limiter.Close)

	mux := api.APIMux(api.APIConfig{
		Log:                 log,
		DB:                  db,
		Session:             scs.New(),
		Issuer:              auth.NewIssuer("integration-secret-of-32-bytes!!", time.Minute),
		Paypal:              paypalCo,
		Stripe:              stripeCo,
		StripeWebhookSecret: env.WebhookSecret,
		Limiter:             limiter,
		Gatherer:            prometheus.NewRegistry(),
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)

	return env, nil
}

func startDB(t *testing.T, name string) (*sqlx.DB, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(res); err != nil {
			t.Logf("purging postgres: %v", err)
		}
	})
	_ = res.Expire(300)

	cfg := config.DB{
		User:         "postgres",
		Password:     "postgres",
		Host:         res.GetHostPort("5432/tcp"),
		Name:         name,
		MaxIdleConns: 2,
		MaxOpenConns: 10,
		DisableTLS:   true,
	}

	var db *sqlx.DB
	pool.MaxWait = time.Minute
	err = pool.Retry(func() error {
		var err error
		db, err = database.Open(cfg)
		if err != nil {
			return err
		}
		return database.StatusCheck(context.Background(), db)
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	return db, nil
}

func (env *TestEnv) createUser(name, email, pass, role string) error {
	hash, err := user.HashPassword(pass)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           validate.GenerateID(),
		Username:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return user.Create(context.Background(), env.DB, u)
}

// Login returns the bearer token of the given user.
func (env *TestEnv) Login(t *testing.T, email, pass string) string {
	t.Helper()

	var tok auth.Token
	code := env.Do(t, http.MethodPost, "/auth/login", "", auth.Credentials{Email: email, Password: pass}, &tok)
	if code != http.StatusOK {
		t.Fatalf("login of %s: status code %d", email, code)
	}
	return tok.AccessToken
}

// Do sends a JSON request, decoding the response into out when given, and
// returns the response status code.
func (env *TestEnv) Do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding response of %s %s: %v", method, path, err)
		}
	}

	return w.StatusCode
}
