// Package auth verifies bearer tokens and carries the caller identity through
// the request context.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Identity struct {
	UserID string
	Role   string
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with a shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *log.Entry
}

func NewTokens(secret string, ttl time.Duration, logger *log.Entry) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now, log: logger}
}

func (t *Tokens) Issue(id Identity) (string, error) {
	if id.UserID == "" {
		return "", errors.New("auth: empty user id")
	}
	now := t.now()
	c := claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// Verify returns the identity carried by a bearer token. Every failure maps to
// the same Unauthenticated error; the cause is only logged.
func (t *Tokens) Verify(bearer string) (Identity, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return Identity{}, apperr.Unauthenticated()
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		t.log.WithError(err).Debug("token rejected")
		return Identity{}, apperr.Unauthenticated()
	}
	if c.Subject == "" {
		t.log.Debug("token rejected: no subject")
		return Identity{}, apperr.Unauthenticated()
	}
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{UserID: c.Subject, Role: role}, nil
}
