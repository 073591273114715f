package services

import (
	"agora/internal/db"
	"agora/internal/models"
	"context"
	"errors"
	"fmt"
)

const DefaultInboxLimit = 50

type InboxService struct {
	inbox NotificationInbox
}

func NewInboxService(d Deps) *InboxService {
	return &InboxService{inbox: d.Store}
}

func (s *InboxService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > DefaultInboxLimit {
		limit = DefaultInboxLimit
	}
	rows, err := s.inbox.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return rows, nil
}

func (s *InboxService) MarkRead(ctx context.Context, userID, id uint) error {
	if err := s.inbox.MarkNotificationRead(ctx, userID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: notification %d", ErrInvalidTarget, id)
		}
		return fmt.Errorf("mark notification: %w", err)
	}
	return nil
}

func (s *InboxService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.inbox.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications: %w", err)
	}
	return n, nil
}
