// Package users holds shop accounts and exchanges credentials for tokens.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
	"github.com/ariefcatur/go-parts-shop/internal/auth"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	ErrNotFound   = errors.New("user not found")
)

const minPasswordLen = 8

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Store interface {
	Create(ctx context.Context, u User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type Service struct {
	Store  Store
	Tokens TokenIssuer
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, password, name string) (User, error) {
	return s.create(ctx, email, password, name, auth.RoleUser)
}

// CreateAdmin is only reachable from the operator CLI.
func (s *Service) CreateAdmin(ctx context.Context, email, password, name string) (User, error) {
	return s.create(ctx, email, password, name, auth.RoleAdmin)
}

func (s *Service) create(ctx context.Context, email, password, name, role string) (User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, apperr.Invalid("a valid email is required")
	}
	if len(password) < minPasswordLen {
		return User{}, apperr.Invalid("password must be at least 8 characters")
	}
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return User{}, apperr.Internal(err)
	}
	u, err := s.Store.Create(ctx, User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Role:         role,
	})
	if errors.Is(err, ErrEmailTaken) {
		return User{}, apperr.Conflict("email already registered")
	}
	if err != nil {
		return User{}, apperr.Internal(err)
	}
	return u, nil
}

// Login answers Unauthenticated for both unknown emails and wrong passwords.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	u, err := s.Store.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return "", User{}, apperr.Unauthenticated().WithReason("invalid_credentials")
	}
	if err != nil {
		return "", User{}, apperr.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", User{}, apperr.Unauthenticated().WithReason("invalid_credentials")
	}
	tok, err := s.Tokens.Issue(auth.Identity{UserID: u.ID, Role: u.Role})
	if err != nil {
		return "", User{}, apperr.Internal(err)
	}
	return tok, u, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	us, err := s.Store.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return us, nil
}
