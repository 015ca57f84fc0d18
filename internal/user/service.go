package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
)

const bcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account is deactivated")
	ErrWeakPassword       = errors.New("password must contain at least one uppercase letter, one lowercase letter, and one number")
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	GetProfile(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, in CreateInput) (*User, error)
	ResolvePrincipal(ctx context.Context, userID string) (*auth.Principal, error)
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// CreateInput is used by seeding and admin tooling; unlike Register it may set any role.
type CreateInput struct {
	Email      string
	Name       string
	Password   string
	Role       auth.Role
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

type Session struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

type service struct {
	repo   Repository
	tokens *auth.Tokens
}

func NewService(repo Repository, tokens *auth.Tokens) Service {
	return &service{repo: repo, tokens: tokens}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := checkPasswordStrength(in.Password); err != nil {
		return nil, err
	}

	u, err := s.CreateUser(ctx, CreateInput{
		Email:    in.Email,
		Name:     in.Name,
		Password: in.Password,
		Role:     auth.RoleCustomer,
	})
	if err != nil {
		return nil, err
	}

	return s.newSession(u)
}

func (s *service) CreateUser(ctx context.Context, in CreateInput) (*User, error) {
	if in.Password == "" {
		return nil, errors.New("password cannot be empty")
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to generate password hash")
		return nil, fmt.Errorf("internal error hashing password: %w", err)
	}

	u := &User{
		Email:        normalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		Role:         in.Role,
		Phone:        in.Phone,
		Address:      in.Address,
		City:         in.City,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	log.Info().Str("user_id", u.ID).Stringer("role", u.Role).Msg("service: user created")
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to get user by email in repository")
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(u)
}

func (s *service) GetProfile(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("user_id", id).Msg("service: failed to get user by id in repository")
		return nil, fmt.Errorf("failed to get user by id '%s': %w", id, err)
	}
	return u, nil
}

// ResolvePrincipal wraps ErrNotFound and ErrInactive with auth.ErrUnauthorized
// so the middleware can tell a revoked account from a storage failure.
func (s *service) ResolvePrincipal(ctx context.Context, userID string) (*auth.Principal, error) {
	u, err := s.GetProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", auth.ErrUnauthorized, err)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: %w", auth.ErrUnauthorized, ErrInactive)
	}
	return u.Principal(), nil
}

func (s *service) newSession(u *User) (*Session, error) {
	token, err := s.tokens.Issue(*u.Principal())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{AccessToken: token, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPasswordStrength(password string) error {
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return ErrWeakPassword
	}
	return nil
}
