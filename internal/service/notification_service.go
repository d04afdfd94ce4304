package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

// NotificationRepository persists notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// NotificationConfig tunes the dispatch queue.
type NotificationConfig struct {
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	DrainTimeout time.Duration
}

// NotificationService emits operator notifications. Emit never blocks and never fails the
// caller; delivery happens on a background queue.
type NotificationService struct {
	repo    NotificationRepository
	queue   *jobs.Queue[models.Notification]
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue. Call Start before Emit.
func NewNotificationService(repo NotificationRepository, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, metrics: metrics, logger: logger}
	svc.queue = jobs.NewQueue[models.Notification]("notifications", svc.deliver, jobs.QueueConfig{
		Workers:      cfg.Workers,
		BufferSize:   cfg.BufferSize,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		DrainTimeout: cfg.DrainTimeout,
		Logger:       logger,
	})
	return svc
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop delivers queued notifications, bounded by the drain timeout, then halts the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Emit queues a notification for delivery.
func (s *NotificationService) Emit(kind models.NotificationType, title, message string) {
	notification := models.Notification{
		Title:     title,
		Message:   message,
		Type:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.queue.TryEnqueue(notification); err != nil {
		s.record(kind, "dropped")
		s.logger.Warn("notification dropped", zap.String("type", string(kind)), zap.String("title", title), zap.Error(err))
	}
}

// List returns notifications, newest first.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	notifications, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags a notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job[models.Notification]) error {
	notification := job.Payload
	if err := s.repo.Create(ctx, &notification); err != nil {
		s.record(notification.Type, "failed")
		return err
	}
	s.record(notification.Type, "delivered")
	return nil
}

func (s *NotificationService) record(kind models.NotificationType, result string) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(kind, result)
	}
}
