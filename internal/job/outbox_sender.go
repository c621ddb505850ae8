package job

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tinbox/internal/model"
	"tinbox/internal/repository"
)

// MessageSender delivers one keyed message to a topic.
type MessageSender interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender relays pending change notifications to Kafka. A message is
// removed once sent and marked FAILED after maxRetries failed attempts.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	sender     MessageSender
	log        logrus.FieldLogger
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
	maxRetries int
}

func NewOutboxSender(outboxRepo *repository.OutboxRepository, sender MessageSender, interval time.Duration, maxRetries int, log logrus.FieldLogger) *OutboxSender {
	return &OutboxSender{
		outboxRepo: outboxRepo,
		sender:     sender,
		log:        log.WithField("job", "outbox_sender"),
		stopCh:     make(chan struct{}),
		interval:   interval,
		batchSize:  100,
		maxRetries: maxRetries,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("outbox sender started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("context done, outbox sender exiting")
			return
		case <-s.stopCh:
			s.log.Info("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.WithError(err).Error("query pending messages failed")
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	entry := s.log.WithFields(logrus.Fields{"id": msg.ID, "topic": msg.Topic, "key": msg.MessageKey})

	err := s.sender.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if delErr := s.outboxRepo.Delete(ctx, msg.ID); delErr != nil {
			entry.WithError(delErr).Error("remove sent message failed")
		} else {
			entry.Debug("message sent")
		}
		return
	}

	entry.WithError(err).Warn("send message failed")

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		entry.WithError(err).Error("increment retry count failed")
	}

	if msg.RetryCount+1 >= s.maxRetries {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			entry.WithError(err).Error("mark message failed failed")
		} else {
			entry.Warn("message exceeded max retries, marked FAILED")
		}
	}
}
