package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/model"
	"github.com/Mnrljan/report-backend/pkg/logger"
	"github.com/Mnrljan/report-backend/store"
	"golang.org/x/crypto/bcrypt"
)

// AuthService registers users and checks administrator credentials.
// Passwords are only ever stored as bcrypt hashes.
type AuthService struct {
	users store.UserStore
	cost  int
}

func NewAuthService(users store.UserStore) *AuthService {
	return &AuthService{users: users, cost: bcrypt.DefaultCost}
}

// Register creates a user with the given role.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || role == "" {
		return nil, fmt.Errorf("%w: username, password and role are required", ErrValidation)
	}
	r, ok := model.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrValidation, model.RoleAdmin, model.RoleInspektur)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: string(hash), Role: r}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	logger.Info(ctx, "user registered", "username", user.Username, "role", user.Role)
	return user, nil
}

// Login returns the user when the credentials match an Admin account.
// Unknown users, wrong passwords and non-Admin roles are indistinguishable.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsAdmin() {
		logger.Warn(ctx, "login refused for non-admin user", "username", user.Username)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SeedUsers creates the configured accounts that do not exist yet.
func (s *AuthService) SeedUsers(ctx context.Context, users []config.User) error {
	for _, u := range users {
		_, err := s.users.FindUserByUsername(ctx, u.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := s.Register(ctx, u.Username, u.Password, u.Role); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.Username, err)
		}
	}
	return nil
}
