// Package notifications manages the per-user notification feed and the
// polling subscription for new entries.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

// Service reads and writes the notifications table.
type Service struct {
	client *supabase.Client
	auth   *auth.Service
	log    zerolog.Logger
}

// New constructs a notifications service.
func New(client *supabase.Client, authSvc *auth.Service, log zerolog.Logger) *Service {
	return &Service{client: client, auth: authSvc, log: log.With().Str("service", "notifications").Logger()}
}

// List returns the signed-in user's notifications, newest first. Signed-out
// users have none.
func (s *Service) List(ctx context.Context) ([]domain.Notification, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}

	var notifications []domain.Notification
	err = s.client.From("notifications").Select("*").
		Eq("user_id", user.ID).
		Order("created_at", supabase.OrderDesc).
		ExecuteInto(ctx, &notifications)
	if err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}
	return notifications, nil
}

// Create inserts a notification. A failure is logged, not propagated:
// notification delivery never blocks the flow that triggered it.
func (s *Service) Create(ctx context.Context, n domain.Notification) {
	n.IsRead = false
	if _, err := s.client.From("notifications").Insert(n).Execute(ctx); err != nil {
		s.log.Error().Err(err).Str("type", n.Type).Str("user_id", n.UserID).Msg("create notification failed")
	}
}

// MarkRead marks one notification as read.
func (s *Service) MarkRead(ctx context.Context, notificationID string) error {
	_, err := s.client.From("notifications").
		Update(map[string]interface{}{"is_read": true}).
		Eq("id", notificationID).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every notification of the signed-in user as read.
func (s *Service) MarkAllRead(ctx context.Context) error {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return err
	}
	_, err = s.client.From("notifications").
		Update(map[string]interface{}{"is_read": true}).
		Eq("user_id", user.ID).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for the signed-in
// user; zero when signed out.
func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return 0, err
	}
	count, err := s.client.From("notifications").Select("*").
		Eq("user_id", user.ID).
		Eq("is_read", "false").
		ExecuteCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// Subscribe polls for new notifications for the signed-in user and invokes
// handler for each. Stop by cancelling ctx or calling Stop on the returned
// poller.
func (s *Service) Subscribe(ctx context.Context, interval time.Duration, handler func(domain.Notification)) (*supabase.ChangePoller, error) {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	poller := s.client.NewChangePoller("notifications", interval).
		Where("user_id", supabase.OpEq, user.ID).
		OnChange(func(record map[string]interface{}) {
			handler(notificationFromRecord(record))
		})
	if err := poller.Start(ctx); err != nil {
		return nil, err
	}
	return poller, nil
}

// ApplicationSubmitted records the "application submitted" notification.
func (s *Service) ApplicationSubmitted(ctx context.Context, userID, petID, petName, petImage string) {
	s.Create(ctx, domain.Notification{
		UserID:   userID,
		Type:     domain.NotificationApplicationSubmitted,
		Title:    "申请已提交",
		Message:  fmt.Sprintf("您已成功提交对「%s」的领养申请，请耐心等待审核。", petName),
		PetID:    petID,
		PetName:  petName,
		PetImage: petImage,
	})
}

// ApplicationApproved records the "application approved" notification.
func (s *Service) ApplicationApproved(ctx context.Context, userID, petID, petName, petImage string) {
	s.Create(ctx, domain.Notification{
		UserID:   userID,
		Type:     domain.NotificationApplicationApproved,
		Title:    "申请已通过 🎉",
		Message:  fmt.Sprintf("恭喜！您对「%s」的领养申请已通过审核，请联系救助中心安排接宠事宜。", petName),
		PetID:    petID,
		PetName:  petName,
		PetImage: petImage,
	})
}

// ApplicationRejected records the "application rejected" notification.
func (s *Service) ApplicationRejected(ctx context.Context, userID, petID, petName, petImage string) {
	s.Create(ctx, domain.Notification{
		UserID:   userID,
		Type:     domain.NotificationApplicationRejected,
		Title:    "申请未通过",
		Message:  fmt.Sprintf("很抱歉，您对「%s」的领养申请未通过审核。您可以尝试申请其他宠物。", petName),
		PetID:    petID,
		PetName:  petName,
		PetImage: petImage,
	})
}

func notificationFromRecord(record map[string]interface{}) domain.Notification {
	str := func(key string) string {
		v, _ := record[key].(string)
		return v
	}
	isRead, _ := record["is_read"].(bool)
	return domain.Notification{
		ID:        str("id"),
		UserID:    str("user_id"),
		Type:      str("type"),
		Title:     str("title"),
		Message:   str("message"),
		PetID:     str("pet_id"),
		PetName:   str("pet_name"),
		PetImage:  str("pet_image"),
		IsRead:    isRead,
		CreatedAt: str("created_at"),
	}
}
