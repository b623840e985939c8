package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/irsalhamdi/e-commerce-shop/core/claims"
	"github.com/irsalhamdi/e-commerce-shop/random"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type roleClaim struct {
	Role string `json:"role"`
}

// Issuer signs and verifies the HS256 bearer tokens handed out at login.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(clm claims.Claims) (string, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: i.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("building signer: %w", err)
	}

	jti, err := random.StringSecure(16)
	if err != nil {
		return "", fmt.Errorf("generating token id: %w", err)
	}

	now := i.now()
	std := jwt.Claims{
		ID:       jti,
		Subject:  clm.UserID,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(i.ttl)),
	}

	raw, err := jwt.Signed(sig).Claims(std).Claims(roleClaim{Role: clm.Role}).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return raw, nil
}

func (i *Issuer) Parse(raw string) (claims.Claims, error) {
	tok, err := jwt.ParseSigned(raw)
	if err != nil {
		return claims.Claims{}, ErrInvalidToken
	}

	var (
		std  jwt.Claims
		role roleClaim
	)
	if err := tok.Claims(i.key, &std, &role); err != nil {
		return claims.Claims{}, ErrInvalidToken
	}

	if err := std.Validate(jwt.Expected{Time: i.now()}); err != nil {
		return claims.Claims{}, ErrInvalidToken
	}
	if std.Subject == "" {
		return claims.Claims{}, ErrInvalidToken
	}

	return claims.Claims{UserID: std.Subject, Role: role.Role}, nil
}
