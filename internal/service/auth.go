// Package service holds the business rules of the catalog: registration,
// login and token validation, and course management with its ownership policy.
package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"learnhub/m/domain"
	"learnhub/m/internal/apperror"
	"learnhub/m/internal/auth"
	"learnhub/m/internal/logging"
	"learnhub/m/internal/store"
)

const (
	msgEmailInUse         = "Email already in use"
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidToken       = "Invalid token"
	msgUserNotFound       = "User not found"
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type RegisterInput struct {
	Name     *string
	Email    string
	Password string
}

type LoginResult struct {
	User  domain.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// AuthService registers users, checks credentials and resolves tokens to identities.
type AuthService struct {
	users  UserStore
	tokens *auth.TokenIssuer
	log    logging.Logger
}

func NewAuthService(users UserStore, tokens *auth.TokenIssuer, log logging.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log.With("component", "auth")}
}

// Register creates a user with a hashed password and the default role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.PublicUser, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return domain.PublicUser{}, apperror.Validation("email and password are required")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.PublicUser{}, apperror.Conflict(msgEmailInUse)
	case !errors.Is(err, store.ErrNotFound):
		return domain.PublicUser{}, apperror.Internal("lookup user by email", err)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return domain.PublicUser{}, apperror.Validation("password must be at most 72 bytes")
		}
		return domain.PublicUser{}, apperror.Internal("hash password", err)
	}

	created, err := s.users.Create(ctx, domain.User{
		Name:     in.Name,
		Email:    email,
		Password: hashed,
		Role:     domain.DefaultRole,
	})
	if err != nil {
		// A concurrent registration won the unique constraint.
		if errors.Is(err, store.ErrDuplicateKey) {
			return domain.PublicUser{}, apperror.Conflict(msgEmailInUse)
		}
		return domain.PublicUser{}, apperror.Internal("create user", err)
	}

	s.log.Info(ctx, "user registered", "user_id", created.ID)
	return created.Public(), nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, apperror.Auth(msgInvalidCredentials)
		}
		return LoginResult{}, apperror.Internal("lookup user by email", err)
	}

	if err := auth.CheckPassword(user.Password, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.log.Warn(ctx, "stored password hash unusable", "user_id", user.ID, "error", err)
		}
		return LoginResult{}, apperror.Auth(msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return LoginResult{}, apperror.Internal("issue token", err)
	}
	return LoginResult{User: user.Public(), Token: token}, nil
}

// ValidateToken verifies a session token and resolves it to the current user.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return domain.Identity{}, apperror.Wrap(apperror.KindAuth, msgInvalidToken, err)
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, apperror.Auth(msgInvalidToken)
		}
		return domain.Identity{}, apperror.Internal("lookup token subject", err)
	}
	return user.Identity(), nil
}

// GetUsers lists all users without their password hashes.
func (s *AuthService) GetUsers(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal("list users", err)
	}
	out := make([]domain.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id int64) (domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PublicUser{}, apperror.NotFound(msgUserNotFound)
		}
		return domain.PublicUser{}, apperror.Internal("get user", err)
	}
	return user.Public(), nil
}
