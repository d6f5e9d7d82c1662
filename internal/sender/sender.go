package sender

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"wavespush/internal/config"
	"wavespush/internal/models"
)

// Queue is the slice of the repository the delivery engine uses.
// *repository.Repository satisfies it.
type Queue interface {
	DequeueDue(ctx context.Context, maxAttempts int) (*models.DueMessage, error)
	Ack(ctx context.Context, uid int64) error
	Nack(ctx context.Context, uid int64, retryAt time.Time, sendErr string) error
}

// Gateway delivers one notification; *fcm.Client satisfies it.
type Gateway interface {
	Send(ctx context.Context, to, title, body string, data json.RawMessage) error
}

// Sender drains the message queue: one poll loop, one message at a time.
// Successful sends delete the row; failures reschedule it with exponential
// backoff until the attempt cap, after which the row stays for diagnostics.
type Sender struct {
	queue   Queue
	gateway Gateway
	cfg     config.SendConfig
	now     func() time.Time
}

func New(queue Queue, gateway Gateway, cfg config.SendConfig) *Sender {
	return &Sender{queue: queue, gateway: gateway, cfg: cfg, now: time.Now}
}

// Run polls until the context is cancelled.
func (s *Sender) Run(ctx context.Context) error {
	log.Printf("[sender] started: max_attempts=%d poll=%s backoff=%s x%g dry_run=%v",
		s.cfg.MaxAttempts, s.cfg.EmptyQueuePollPeriod, s.cfg.BackoffInitialInterval,
		s.cfg.BackoffMultiplier, s.cfg.DryRun)

	for {
		if err := ctx.Err(); err != nil {
			log.Println("[sender] shutting down")
			return nil
		}

		due, err := s.queue.DequeueDue(ctx, s.cfg.MaxAttempts)
		if err != nil {
			log.Printf("[sender] warning: dequeue failed: %v", err)
			if !s.sleep(ctx, s.cfg.EmptyQueuePollPeriod) {
				return nil
			}
			continue
		}
		if due == nil {
			if !s.sleep(ctx, s.cfg.EmptyQueuePollPeriod) {
				return nil
			}
			continue
		}

		s.deliver(ctx, due)
	}
}

func (s *Sender) deliver(ctx context.Context, due *models.DueMessage) {
	msg := due.Message
	err := s.gateway.Send(ctx, due.FCMUID, msg.Title, msg.Body, msg.Data)
	if err == nil {
		if ackErr := s.queue.Ack(ctx, msg.UID); ackErr != nil {
			log.Printf("[sender] warning: ack of message %d failed: %v", msg.UID, ackErr)
		}
		return
	}

	attempts := int(msg.SendAttempts)
	retryAt := s.now().Add(Backoff(s.cfg.BackoffInitialInterval, s.cfg.BackoffMultiplier, attempts))
	log.Printf("[sender] delivery of message %d failed (attempt %d/%d), retry at %s: %v",
		msg.UID, attempts+1, s.cfg.MaxAttempts, retryAt.Format(time.RFC3339), err)
	if nackErr := s.queue.Nack(ctx, msg.UID, retryAt, err.Error()); nackErr != nil {
		log.Printf("[sender] warning: nack of message %d failed: %v", msg.UID, nackErr)
	}
}

// sleep waits for the poll period; false means the context was cancelled.
func (s *Sender) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
