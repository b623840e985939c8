// Admin runs the maintenance commands of the shop database.
//
//	admin migrate          apply the pending migrations
//	admin seed             insert the demo users, products and carts
//	admin promote <email>  grant the admin role to a user
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/e-commerce-shop/config"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/core/user"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	cfg := struct {
		Args conf.Args
		DB   config.DB
	}{}

	const prefix = "SHOP"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cmd := cfg.Args.Num(0); cmd {
	case "migrate":
		version, err := database.Migrate(db)
		if err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		log.Infof("database at schema version %d", version)

	case "seed":
		if err := database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
			return seed(ctx, tx, time.Now().UTC())
		}); err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		log.Info("demo data inserted")

	case "promote":
		email := cfg.Args.Num(1)
		if email == "" {
			return errors.New("usage: admin promote <email>")
		}
		if err := promote(ctx, db, email); err != nil {
			return err
		}
		log.WithField("email", email).Info("user promoted to admin")

	default:
		return fmt.Errorf("unknown command %q: expected migrate, seed or promote", cmd)
	}

	return nil
}

func promote(ctx context.Context, db *sqlx.DB, email string) error {
	return database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		u, err := user.FetchByEmail(ctx, tx, email)
		if err != nil {
			return fmt.Errorf("fetching user: %w", err)
		}

		u.Role = claims.RoleAdmin
		u.UpdatedAt = time.Now().UTC()
		return user.Update(ctx, tx, u)
	})
}
