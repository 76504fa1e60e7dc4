package outbox

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/domain"
	kafka_infra "coursepay/internal/infrastructure/kafka"
	"coursepay/internal/repository/outbox_repo"
)

const batchSize = 50

// Processor polls the outbox table and publishes pending notification
// messages to Kafka. Delivery is at-least-once: a message is only marked SENT
// after the broker acknowledged it.
type Processor struct {
	db           *sql.DB
	outboxRepo   outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	topic        string
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

func NewProcessor(
	db *sql.DB,
	outboxRepo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	topic string,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:           db,
		outboxRepo:   outboxRepo,
		producer:     producer,
		topic:        topic,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger,
	}
}

// Start blocks until ctx is canceled.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor", zap.Duration("poll_interval", p.pollInterval))
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopping")
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(pollCtx, nil)
	if err != nil {
		p.logger.Error("Failed to begin outbox transaction", zap.Error(err))
		return
	}
	defer tx.Rollback()

	messages, err := p.outboxRepo.GetPendingMessages(pollCtx, tx, batchSize)
	if err != nil {
		p.logger.Error("Failed to fetch pending outbox messages", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		status := domain.OutboxStatusSent
		if err := p.producer.Produce(pollCtx, p.topic, msg.MessageType, msg.Payload); err != nil {
			p.logger.Error("Failed to publish outbox message, will retry",
				zap.String("message_id", msg.ID),
				zap.String("message_type", msg.MessageType),
				zap.Error(err))
			// Leave it PENDING so the next poll retries.
			continue
		}
		if err := p.outboxRepo.UpdateMessageStatusTx(pollCtx, tx, msg.ID, status); err != nil {
			p.logger.Error("Failed to mark outbox message sent",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return
		}
	}

	if err := tx.Commit(); err != nil {
		p.logger.Error("Failed to commit outbox batch", zap.Error(err))
	}
}
