package kafka

import (
	"context"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const maxMessageBytes = 1 << 20

// Consumer читает задачи классификации в составе группы потребителей.
// Смещение фиксируется только явным Ack, поэтому неподтверждённая задача будет доставлена повторно.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg *cfg.KafkaCfg) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       maxMessageBytes,
		MaxWait:        cfg.MaxWait,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{reader: reader}
}

// Fetch блокируется до следующей задачи или отмены контекста.
func (c *Consumer) Fetch(ctx context.Context) (*domain.Job, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return jobFromMessage(msg), nil
}

// Ack фиксирует смещение задачи в группе.
func (c *Consumer) Ack(ctx context.Context, job *domain.Job) error {
	if err := c.reader.CommitMessages(ctx, kafka.Message{
		Topic:     job.Topic,
		Partition: job.Partition,
		Offset:    job.Offset,
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func jobFromMessage(msg kafka.Message) *domain.Job {
	return domain.NewJob(string(msg.Value), msg.Topic, msg.Partition, msg.Offset)
}
