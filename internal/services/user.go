package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	CreateAdminIfMissing(ctx context.Context, user types.User) (types.User, bool, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string            `json:"token"`
	User  types.UserSummary `json:"user"`
}

// AuthService encapsulates login and identity use-cases.
type AuthService struct {
	repo   UserRepository
	tokens *TokenCodec
	log    logrus.FieldLogger
}

func NewAuthService(repo UserRepository, tokens *TokenCodec, log logrus.FieldLogger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, log: log}
}

// Login verifies the credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, invalid("missing credentials")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("%w: load user: %w", ErrStorage, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("user_id", user.ID).Info("login rejected")
		return LoginResult{}, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("login succeeded")
	return LoginResult{Token: token, User: user.Summary()}, nil
}

// Resolve turns a bearer token into the caller's identity.
func (s *AuthService) Resolve(token string) (Identity, error) {
	return s.tokens.Parse(token)
}

// CurrentUser loads the profile of the authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, identity Identity) (types.User, error) {
	user, err := s.repo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, err
		}
		return types.User{}, fmt.Errorf("%w: load user: %w", ErrStorage, err)
	}
	return user, nil
}

// RequireRole fails with ErrForbidden unless the identity holds role.
func RequireRole(identity Identity, role string) error {
	if identity.Role != role {
		return ErrForbidden
	}
	return nil
}
