package redis

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/pkg/clients"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/jimlawless/whereami"
)

// AttemptRepo хранит счётчик попыток обработки доставки задачи. Счётчик переживает
// перезапуск обработчика, поэтому повторная доставка после падения не обнуляет лимит попыток.
type AttemptRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
}

func NewAttemptRepo(client *clients.RedisClient, cfg *cfg.RedisCfg) *AttemptRepo {
	return &AttemptRepo{
		client: client,
		cfg:    cfg,
	}
}

// Increment увеличивает счётчик и возвращает номер текущей попытки (с единицы).
func (a *AttemptRepo) Increment(ctx context.Context, deliveryKey string) (int, error) {
	key := attemptsKey(deliveryKey)

	pipe := a.client.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, a.cfg.AttemptsTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return int(incr.Val()), nil
}

// Reset удаляет счётчик после подтверждения задачи.
func (a *AttemptRepo) Reset(ctx context.Context, deliveryKey string) error {
	if err := a.client.Client.Del(ctx, attemptsKey(deliveryKey)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func attemptsKey(deliveryKey string) string {
	return fmt.Sprintf("job_attempts:%s", deliveryKey)
}
