package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

var ErrAccessDenied = errors.New("access denied")

type Repository interface {
	Create(ctx context.Context, entry *LogEntry) error
	// ListByRecipients returns entries for any of recipients, newest first.
	ListByRecipients(ctx context.Context, recipients []string) ([]LogEntry, error)
}

type Service interface {
	ListLogs(ctx context.Context, principal *auth.Principal, recipient string) ([]LogEntry, error)
}

type service struct {
	repo  Repository
	users user.Repository
}

func NewService(repo Repository, users user.Repository) Service {
	return &service{repo: repo, users: users}
}

// ListLogs returns the caller's notification log. Customers may narrow by one
// of their own addresses; admins may ask for any recipient.
func (s *service) ListLogs(ctx context.Context, principal *auth.Principal, recipient string) ([]LogEntry, error) {
	u, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return []LogEntry{}, nil
		}
		return nil, fmt.Errorf("service: failed to load user for notification logs: %w", err)
	}

	allowed := []string{u.Email}
	if u.Phone != "" {
		allowed = append(allowed, u.Phone)
	}

	recipients := allowed
	if recipient != "" {
		if !principal.HasRole(auth.RoleAdmin) && !contains(allowed, recipient) {
			log.Warn().Str("user_id", principal.UserID).Str("recipient", recipient).Msg("service: notification log access denied")
			return nil, ErrAccessDenied
		}
		recipients = []string{recipient}
	}

	entries, err := s.repo.ListByRecipients(ctx, recipients)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list notification logs: %w", err)
	}
	return entries, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
