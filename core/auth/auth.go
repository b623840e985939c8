package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/e-commerce-shop/api/web"
	"github.com/irsalhamdi/e-commerce-shop/api/weberr"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/core/user"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/irsalhamdi/e-commerce-shop/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionUserID = "userID"
	sessionRole   = "role"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        user.User `json:"user"`
}

func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})
			sm.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// Authenticate loads the claims of the caller from the bearer token or, when
// no token is sent, from the session.
func Authenticate(sm *scs.SessionManager, iss *Issuer) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, err := identify(ctx, r, sm, iss)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

func Admin(sm *scs.SessionManager, iss *Issuer) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, err := identify(ctx, r, sm, iss)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			if clm.Role != claims.RoleAdmin {
				return weberr.Forbidden(fmt.Errorf("user[%s] is not an admin", clm.UserID))
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

func identify(ctx context.Context, r *http.Request, sm *scs.SessionManager, iss *Issuer) (claims.Claims, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, raw, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return claims.Claims{}, errors.New("expected authorization header format: Bearer <token>")
		}
		return iss.Parse(strings.TrimSpace(raw))
	}

	id := sm.GetString(ctx, sessionUserID)
	if id == "" {
		return claims.Claims{}, errors.New("user not authenticated")
	}

	return claims.Claims{UserID: id, Role: sm.GetString(ctx, sessionRole)}, nil
}

func HandleRegister(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(un); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		hash, err := user.HashPassword(un.Password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now().UTC()
		u := user.User{
			ID:           validate.GenerateID(),
			Username:     un.Username,
			Email:        strings.ToLower(un.Email),
			PasswordHash: hash,
			Role:         claims.RoleUser,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, u); err != nil {
			if errors.Is(err, database.ErrDBDuplicatedEntry) {
				return weberr.NewError(err, "email already exists", http.StatusConflict)
			}
			return fmt.Errorf("creating user: %w", err)
		}

		return web.Respond(ctx, w, u, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager, iss *Issuer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred Credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cred); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		invalid := errors.New("invalid credentials")

		u, err := user.FetchByEmail(ctx, db, strings.ToLower(cred.Email))
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NewError(err, invalid.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("fetching user: %w", err)
		}

		if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(cred.Password)); err != nil {
			return weberr.NewError(err, invalid.Error(), http.StatusBadRequest)
		}

		clm := claims.Claims{UserID: u.ID, Role: u.Role}
		tok, err := iss.Issue(clm)
		if err != nil {
			return fmt.Errorf("issuing token for user[%s]: %w", u.ID, err)
		}

		if err := sm.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
		sm.Put(ctx, sessionUserID, u.ID)
		sm.Put(ctx, sessionRole, u.Role)

		return web.Respond(ctx, w, Token{AccessToken: tok, TokenType: "bearer", User: u}, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
