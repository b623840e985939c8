package config

import "time"

type Config struct {
	Log      Log
	Web      Web
	DB       DB
	Auth     Auth
	Cors     Cors
	Paypal   Paypal
	Stripe   Stripe
	Checkout Checkout
	Rate     Rate
}

type Web struct {
	Address         string        `conf:"default:localhost:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Log struct {
	Level string `conf:"default:info"`
	JSON  bool   `conf:"default:false"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:shop"`
	MaxIdleConns int    `conf:"default:5"`
	MaxOpenConns int    `conf:"default:25"`
	DisableTLS   bool   `conf:"default:true"`
	AutoMigrate  bool   `conf:"default:false"`
}

type Auth struct {
	Secret         string        `conf:"default:change-me-please-32-bytes-long!!,mask"`
	TokenTTL       time.Duration `conf:"default:30m"`
	SessionTimeout time.Duration `conf:"default:24h"`
}

type Cors struct {
	Origin string
}

type Paypal struct {
	ClientID string `conf:"mask"`
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api-m.sandbox.paypal.com"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:8000/orders/stripe/capture"`
	CancelURL     string `conf:"default:http://localhost:3000/cart"`
}

type Checkout struct {
	Currency         string        `conf:"default:USD"`
	ReturnURL        string        `conf:"default:http://localhost:8000/orders/paypal/capture"`
	CancelURL        string        `conf:"default:http://localhost:8000/orders/paypal/cancel"`
	ClearOrderedOnly bool          `conf:"default:false"`
	Retries          uint64        `conf:"default:3"`
	RetryInterval    time.Duration `conf:"default:200ms"`
	PendingTTL       time.Duration `conf:"default:3h"`
	SweepInterval    time.Duration `conf:"default:15m"`
}

type Rate struct {
	Burst    int           `conf:"default:5"`
	Expiry   time.Duration `conf:"default:10m"`
	LimitRPS float64       `conf:"default:1"`
}
