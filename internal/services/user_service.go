package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"printqueue/internal/logger"
	"printqueue/internal/status"
	"printqueue/internal/store"
	"printqueue/models"
	"printqueue/utils"
)

const tempPasswordLength = 12

// UserService manages staff accounts in the users auth collection.
type UserService struct {
	store     store.Store
	l         logger.Logger
	now       func() time.Time
	passwords func(n int) (string, error)
}

func NewUserService(st store.Store, l logger.Logger) *UserService {
	return &UserService{store: st, l: l, now: time.Now, passwords: utils.GenerateTempPassword}
}

// Create opens an account with a generated temporary password. The password
// is returned once and must be handed to the new user.
func (s *UserService) Create(ctx context.Context, email string, role models.Role, createdBy string) (models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return models.User{}, "", fmt.Errorf("%w: %v", status.ErrInvalidEmail, err)
	}
	if !role.Valid() {
		return models.User{}, "", status.ErrInvalidRole
	}

	existing, err := s.store.Query(ctx, store.CollectionUsers, store.Query{
		Filters: []store.Filter{store.Eq("email", email)},
		Limit:   1,
	})
	if err != nil {
		return models.User{}, "", fmt.Errorf("look up %s: %w", email, err)
	}
	if len(existing) > 0 {
		return models.User{}, "", status.ErrUserExists
	}

	password, err := s.passwords(tempPasswordLength)
	if err != nil {
		return models.User{}, "", fmt.Errorf("generate password: %w", err)
	}

	user := models.User{
		Email:        email,
		Role:         role,
		CreatedAt:    s.now(),
		CreatedBy:    createdBy,
		IsFirstLogin: true,
		IsActive:     true,
	}
	id, err := s.store.Insert(ctx, store.CollectionUsers, store.Fields{
		"email":        user.Email,
		"password":     password,
		"role":         string(user.Role),
		"createdAt":    millis(user.CreatedAt),
		"createdBy":    user.CreatedBy,
		"isFirstLogin": true,
		"isActive":     true,
	})
	if err != nil {
		return models.User{}, "", fmt.Errorf("create %s: %w", email, err)
	}
	user.ID = id

	s.l.Infof(ctx, "users: %s created %s account %s", createdBy, role, email)
	return user, password, nil
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	docs, err := s.store.Query(ctx, store.CollectionUsers, store.Query{
		OrderBy: []store.Order{store.Desc("createdAt")},
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, decodeUser(d))
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	doc, err := s.store.Get(ctx, store.CollectionUsers, id)
	if err != nil {
		return models.User{}, err
	}
	return decodeUser(doc), nil
}

func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.store.Update(ctx, store.CollectionUsers, id, store.Fields{"isActive": active}); err != nil {
		return fmt.Errorf("set active %s: %w", id, err)
	}
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, store.CollectionUsers, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// CompleteFirstLogin records that the user has signed in and replaced the
// temporary password.
func (s *UserService) CompleteFirstLogin(ctx context.Context, id string) error {
	err := s.store.Update(ctx, store.CollectionUsers, id, store.Fields{
		"isFirstLogin": false,
		"lastLoginAt":  millis(s.now()),
	})
	if err != nil {
		return fmt.Errorf("complete first login %s: %w", id, err)
	}
	return nil
}
