package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/jitter"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const (
	publishAttempts    = 3
	publishBackoffBase = 200 * time.Millisecond
	publishBackoffMax  = 2 * time.Second
)

// Producer пишет задачи классификации и записи о снятых с обработки задачах.
// Запись синхронная: Publish возвращается только после подтверждения всеми репликами.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// Publish ставит в очередь задачу для фотографии. Тело сообщения содержит только идентификатор фотографии.
func (p *Producer) Publish(ctx context.Context, photoID string) error {
	if err := p.write(ctx, jobMessage(p.cfg.Topic, photoID)); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// PublishDeadLetter пишет запись о задаче, снятой с обработки, в отдельный топик.
func (p *Producer) PublishDeadLetter(ctx context.Context, dl *domain.DeadLetter) error {
	msg, err := deadLetterMessage(p.cfg.DeadLetterTopic, dl)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := p.write(ctx, msg); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// write повторяет запись при временных сбоях брокера.
func (p *Producer) write(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil || !isRetryableError(err) {
			return err
		}

		p.logger.Warnf("Temporary Kafka failure, topic=%s attempt=%d: %v", msg.Topic, attempt+1, err)
		if sleepErr := jitter.Sleep(ctx, jitter.ExponentialBackoff(publishBackoffBase, publishBackoffMax, attempt, jitter.DefaultJitter)); sleepErr != nil {
			return sleepErr
		}
	}

	return err
}

// EnsureTopics создаёт отсутствующие топики.
func (p *Producer) EnsureTopics(timeout time.Duration, topics ...string) error {
	for _, topic := range topics {
		if err := p.ensureTopic(topic, timeout); err != nil {
			return err
		}
	}

	return nil
}

func (p *Producer) ensureTopic(topic string, timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		err := conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", topic, err))
		}
		p.logger.Infof("Kafka topic created: %s", topic)
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func jobMessage(topic, photoID string) kafka.Message {
	return kafka.Message{
		Topic: topic,
		Key:   []byte(photoID),
		Value: []byte(photoID),
	}
}

func deadLetterMessage(topic string, dl *domain.DeadLetter) (kafka.Message, error) {
	value, err := json.Marshal(dl)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Topic: topic,
		Key:   []byte(dl.PhotoID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "stage", Value: []byte(dl.Stage)},
		},
	}, nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"leader not available",
		"not leader for partition",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
