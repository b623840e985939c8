package main

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-shop/core/cart"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/core/product"
	"github.com/irsalhamdi/e-commerce-shop/core/user"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type seedUser struct {
	username string
	email    string
	password string
	cart     map[string]int
}

var seedProducts = []product.Product{
	{Name: "Mango", Description: "Fresh mango", Price: decimal.NewFromInt(20)},
	{Name: "Banana", Description: "Ripe banana", Price: decimal.NewFromInt(15)},
	{Name: "Pencil", Description: "HB pencil", Price: decimal.NewFromInt(1)},
}

var seedUsers = []seedUser{
	{username: "a", email: "a@gmail.com", password: "1234", cart: map[string]int{"Mango": 10, "Banana": 20}},
	{username: "b", email: "b@gmail.com", password: "9876", cart: map[string]int{"Banana": 50, "Pencil": 30}},
}

func seed(ctx context.Context, db sqlx.ExtContext, now time.Time) error {
	byName := make(map[string]product.Product, len(seedProducts))
	for _, p := range seedProducts {
		p.ID = validate.GenerateID()
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := product.Create(ctx, db, p); err != nil {
			return fmt.Errorf("creating product %s: %w", p.Name, err)
		}
		byName[p.Name] = p
	}

	for _, su := range seedUsers {
		hash, err := user.HashPassword(su.password)
		if err != nil {
			return err
		}

		u := user.User{
			ID:           validate.GenerateID(),
			Username:     su.username,
			Email:        su.email,
			PasswordHash: hash,
			Role:         claims.RoleUser,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := user.Create(ctx, db, u); err != nil {
			return fmt.Errorf("creating user %s: %w", su.email, err)
		}

		for name, qty := range su.cart {
			p := byName[name]
			it := cart.Item{
				UserID:    u.ID,
				ProductID: p.ID,
				Quantity:  qty,
				UnitPrice: p.Price,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := cart.AddItem(ctx, db, it); err != nil {
				return fmt.Errorf("adding %s to the cart of %s: %w", name, su.email, err)
			}
		}
	}

	return nil
}
