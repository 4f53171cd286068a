package scheduler

import (
	"context"
	"fmt"
	"time"

	"propsales_backend/internal/notification/outbox"
	"propsales_backend/platform/config"
	"propsales_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// OutboxClaimer is the slice of the outbox repository the dispatcher needs.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// NotificationOutboxDispatcher polls the outbox for due records and enqueues
// them as asynq tasks. A record that fails to enqueue goes back to pending
// with the error recorded, so the next poll retries it.
type NotificationOutboxDispatcher struct {
	client *asynq.Client
	queue  string
	repo   OutboxClaimer
	log    *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &NotificationOutboxDispatcher{
		client: asynq.NewClient(opt),
		queue:  queue,
		repo:   repo,
		log:    log,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Run polls until the context is cancelled.
func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := d.DispatchOnce(ctx); err != nil {
			d.log.Warn("outbox claim failed", "error", err)
		}
	}
}

// DispatchOnce claims one batch of due records and enqueues them.
func (d *NotificationOutboxDispatcher) DispatchOnce(ctx context.Context) error {
	records, err := d.repo.ClaimPending(ctx, 50)
	if err != nil {
		return err
	}

	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
			OutboxID: rec.ID.String(),
			ClientID: rec.ClientID.String(),
		})
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}
	}
	return nil
}
