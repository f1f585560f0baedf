package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrAccessExpired = errors.New("tokens: access token expired")
	ErrAccessInvalid = errors.New("tokens: access token invalid")
)

type AccessClaims struct {
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Grants      []string `json:"grants,omitempty"`
	jwt.RegisteredClaims
}

// Subject is the identity an access token is minted for.
type Subject struct {
	UserID      string
	Email       string
	Role        string
	Permissions []string
	Grants      []string
}

type Clock func() time.Time

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    Clock
}

func NewIssuer(secret []byte, ttl time.Duration, now Clock) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: secret, ttl: ttl, now: now}
}

func (i *Issuer) Issue(s Subject) (string, time.Time, error) {
	if s.UserID == "" || s.Role == "" {
		return "", time.Time{}, fmt.Errorf("tokens: subject needs user id and role")
	}
	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(i.ttl)
	claims := AccessClaims{
		Email:       s.Email,
		Role:        s.Role,
		Permissions: s.Permissions,
		Grants:      s.Grants,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokens: sign access: %w", err)
	}
	return signed, exp, nil
}

// Verifier checks signature and expiry only. It holds no mutable state and is
// safe for concurrent use.
type Verifier struct {
	secret []byte
	now    Clock
}

func NewVerifier(secret []byte, now Clock) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: secret, now: now}
}

func (v *Verifier) Verify(raw string) (*AccessClaims, error) {
	if raw == "" {
		return nil, ErrAccessInvalid
	}
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrAccessInvalid, err)
	}
	if !tkn.Valid || claims.Subject == "" || claims.Role == "" {
		return nil, ErrAccessInvalid
	}
	return &claims, nil
}
