package service

import (
	"account_onboarding/internal/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type NotificationMessage struct {
	ID             string               `json:"id"`
	RecipientName  string               `json:"recipientName"`
	RecipientPhone string               `json:"recipientPhone"`
	Status         domain.AccountStatus `json:"status"`
	Message        string               `json:"message"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// NotificationChannel delivers a message over one transport. Channels that
// hold connections may also implement io.Closer.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, msg NotificationMessage) error
}

// NotificationService fans a notification out to every configured channel in
// order. Delivery is synchronous; failures from all channels are joined.
type NotificationService struct {
	channels []NotificationChannel
	logger   *slog.Logger
}

func NewNotificationService(channels []NotificationChannel, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}

	return &NotificationService{
		channels: channels,
		logger:   logger,
	}
}

func (s *NotificationService) Notify(
	ctx context.Context,
	recipientName string,
	recipientPhone string,
	status domain.AccountStatus,
	message string,
) error {
	if len(s.channels) == 0 {
		return errors.New("no notification channels configured")
	}

	msg := NotificationMessage{
		ID:             uuid.NewString(),
		RecipientName:  recipientName,
		RecipientPhone: recipientPhone,
		Status:         status,
		Message:        message,
		CreatedAt:      time.Now().UTC(),
	}

	var errs []error
	for _, ch := range s.channels {
		startTime := time.Now()
		err := ch.Send(ctx, msg)
		duration := time.Since(startTime)

		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to send notification",
				slog.String("channel", ch.Name()),
				slog.String("notification_id", msg.ID),
				slog.String("status", string(status)),
				slog.String("error", err.Error()),
				slog.Duration("duration", duration))
			errs = append(errs, fmt.Errorf("%s channel: %w", ch.Name(), err))
			continue
		}

		s.logger.DebugContext(ctx, "Notification delivered",
			slog.String("channel", ch.Name()),
			slog.String("notification_id", msg.ID),
			slog.Duration("duration", duration))
	}

	return errors.Join(errs...)
}

func (s *NotificationService) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Shutdown closes every channel that holds a connection.
func (s *NotificationService) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, ch := range s.channels {
			if closer, ok := ch.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					errs = append(errs, fmt.Errorf("%s channel: %w", ch.Name(), err))
				}
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		s.logger.Info("Notification service shutdown complete")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
