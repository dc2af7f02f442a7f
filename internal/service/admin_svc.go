package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

var adminRoles = map[string]bool{"admin": true, "moderator": true}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]model.AdminUser, error)
	Add(ctx context.Context, a model.AdminUser) (model.AdminUser, error)
	Remove(ctx context.Context, userID string) error
}

// AdminService decides who may moderate and manages the roster.
type AdminService struct {
	repo   AdminStore
	emails map[string]bool
	log    zerolog.Logger
}

// NewAdminService builds the service. emails is the ADMIN_EMAILS allow-list.
func NewAdminService(repo AdminStore, emails []string, log zerolog.Logger) *AdminService {
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = true
		}
	}
	return &AdminService{repo: repo, emails: set, log: log}
}

// IsAdmin grants access when the email is allow-listed or the user is on the roster.
func (s *AdminService) IsAdmin(ctx context.Context, userID, email string) (bool, error) {
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" && s.emails[e] {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}
	return s.repo.IsAdmin(ctx, userID)
}

func (s *AdminService) List(ctx context.Context) ([]model.AdminUser, error) {
	return s.repo.List(ctx)
}

// Add puts a user on the roster, defaulting the role to admin.
func (s *AdminService) Add(ctx context.Context, req model.AdminUserRequest, by string) (model.AdminUser, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || len(userID) > 64 {
		return model.AdminUser{}, invalid("INVALID_USER", "userId must be 1-64 characters")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") || len(email) > 254 {
		return model.AdminUser{}, invalid("INVALID_EMAIL", "email is not valid")
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = "admin"
	}
	if !adminRoles[role] {
		return model.AdminUser{}, invalid("INVALID_ROLE", "role must be admin or moderator")
	}

	a, err := s.repo.Add(ctx, model.AdminUser{UserID: userID, Email: email, Role: role})
	if err != nil {
		return model.AdminUser{}, err
	}
	s.log.Info().Str("user_id", userID).Str("role", role).Str("by", by).Msg("admin added")
	return a, nil
}

// Remove takes a user off the roster.
func (s *AdminService) Remove(ctx context.Context, userID, by string) error {
	err := s.repo.Remove(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAdminNotFound
	}
	if err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Str("by", by).Msg("admin removed")
	return nil
}

// Forget drops the caller's own roster entry, if any.
func (s *AdminService) Forget(ctx context.Context, userID string) error {
	err := s.repo.Remove(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
