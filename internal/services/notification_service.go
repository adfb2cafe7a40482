package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bistro/internal/models"
)

// Notifier records a user-visible notification.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, kind, link string) error
}

// NotificationService stores notifications for clients to poll.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Notify persists one notification for userID.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, title, message, kind, link string) error {
	notification := models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Kind:    kind,
		Link:    link,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return fmt.Errorf("notification: create for user %s: %w", userID, err)
	}
	return nil
}

// ListForUser returns a page of notifications, newest first, and the total count.
func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Notification
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead stamps a notification as read. It returns false when the
// notification does not belong to userID.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func orderLink(orderID uint) string {
	return fmt.Sprintf("/orders/%d", orderID)
}
