package queue

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
	"github.com/DRSN-tech/photo-pipeline/pkg/jitter"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

const (
	fetchBackoffBase = 500 * time.Millisecond
	fetchBackoffMax  = 10 * time.Second
	ackTimeout       = 5 * time.Second
)

// Worker читает задачи классификации из очереди и обрабатывает их по одной.
// Задача подтверждается только после успешной обработки либо после записи в очередь снятых задач,
// поэтому при падении процесса неподтверждённые задачи будут доставлены повторно.
type Worker struct {
	consumer    usecase.JobConsumer
	deadLetters usecase.DeadLetterPublisher
	attempts    usecase.AttemptRepository
	uc          usecase.ClassifyUC
	reporter    usecase.ErrorReporter
	cfg         *cfg.WorkerCfg
	logger      logger.Logger

	jobs   chan *domain.Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewWorker(
	consumer usecase.JobConsumer,
	deadLetters usecase.DeadLetterPublisher,
	attempts usecase.AttemptRepository,
	uc usecase.ClassifyUC,
	reporter usecase.ErrorReporter,
	cfg *cfg.WorkerCfg,
	logger logger.Logger,
) *Worker {
	prefetch := cfg.Prefetch
	if prefetch < 1 {
		prefetch = 1
	}

	return &Worker{
		consumer:    consumer,
		deadLetters: deadLetters,
		attempts:    attempts,
		uc:          uc,
		reporter:    reporter,
		cfg:         cfg,
		logger:      logger,
		jobs:        make(chan *domain.Job, prefetch),
		now:         time.Now,
	}
}

// Start запускает чтение и обработку задач. Остановка через Stop или отмену ctx.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.fetch(ctx)
	}()

	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	w.logger.Infof("Queue worker started, prefetch=%d max_attempts=%d", cap(w.jobs), w.cfg.MaxAttempts)
}

// Stop прекращает чтение новых задач и ждёт завершения текущей (не дольше JobTimeout).
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Infof("Queue worker stopped")
}

// fetch читает задачи в ограниченный буфер. Когда буфер полон, чтение из очереди приостанавливается.
func (w *Worker) fetch(ctx context.Context) {
	defer close(w.jobs)

	failures := 0
	for {
		job, err := w.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			w.logger.Warnf("Fetch failed, retrying: %v", err)
			if err := jitter.Sleep(ctx, jitter.ExponentialBackoff(fetchBackoffBase, fetchBackoffMax, failures, jitter.DefaultJitter)); err != nil {
				return
			}
			failures++
			continue
		}
		failures = 0

		select {
		case w.jobs <- job:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	for job := range w.jobs {
		if ctx.Err() != nil {
			// Остаток буфера не подтверждён и будет доставлен повторно
			continue
		}
		w.handle(ctx, job)
	}
}

// handle обрабатывает задачу с ограниченным числом попыток.
func (w *Worker) handle(ctx context.Context, job *domain.Job) {
	local := 0
	for {
		local++
		attempt := w.attempt(ctx, job, local)

		err := w.process(ctx, job)
		if err == nil {
			if w.ack(ctx, job) {
				w.resetAttempts(ctx, job)
				w.logger.Debugf("Job acknowledged, photo_id=%s delivery=%s attempt=%d", job.PhotoID, job.DeliveryKey(), attempt)
			}
			return
		}

		stage := domain.StageOf(err)
		w.logger.Errorf(err, "Job failed, photo_id=%s stage=%s attempt=%d/%d", job.PhotoID, stage, attempt, w.cfg.MaxAttempts)

		if ctx.Err() != nil {
			w.logger.Warnf("Worker stopping, job left unacknowledged, photo_id=%s stage=%s", job.PhotoID, stage)
			return
		}

		if domain.IsPermanent(err) || attempt >= w.cfg.MaxAttempts {
			w.deadLetter(ctx, job, err, attempt)
			return
		}

		backoff := jitter.ExponentialBackoff(w.cfg.BackoffBase, w.cfg.BackoffMax, attempt-1, jitter.DefaultJitter)
		if err := jitter.Sleep(ctx, backoff); err != nil {
			w.logger.Warnf("Worker stopping during backoff, photo_id=%s stage=%s", job.PhotoID, stage)
			return
		}
	}
}

// process выполняет шаги обработки. Текущая задача доводится до конца даже при остановке,
// но не дольше JobTimeout.
func (w *Worker) process(ctx context.Context, job *domain.Job) error {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.JobTimeout)
	defer cancel()

	return w.uc.ProcessJob(jobCtx, job.PhotoID)
}

// attempt возвращает номер попытки с учётом предыдущих доставок той же задачи.
// Если счётчик недоступен, используется локальный.
func (w *Worker) attempt(ctx context.Context, job *domain.Job, local int) int {
	n, err := w.attempts.Increment(ctx, job.DeliveryKey())
	if err != nil {
		w.logger.Warnf("Attempt counter unavailable, photo_id=%s: %v", job.PhotoID, err)
		return local
	}

	return max(n, local)
}

func (w *Worker) resetAttempts(ctx context.Context, job *domain.Job) {
	if err := w.attempts.Reset(context.WithoutCancel(ctx), job.DeliveryKey()); err != nil {
		w.logger.Warnf("Attempt counter reset failed, photo_id=%s: %v", job.PhotoID, err)
	}
}

// deadLetter снимает задачу с обработки. Подтверждение допустимо только после записи в очередь снятых задач:
// фиксация смещения подтверждает и все предыдущие сообщения раздела.
func (w *Worker) deadLetter(ctx context.Context, job *domain.Job, cause error, attempt int) {
	dl := domain.NewDeadLetter(job, cause, attempt, w.now().UTC())

	for try := 0; ; try++ {
		err := w.deadLetters.PublishDeadLetter(ctx, dl)
		if err == nil {
			break
		}

		w.logger.Errorf(err, "Dead letter publish failed, photo_id=%s stage=%s", job.PhotoID, dl.Stage)
		if err := jitter.Sleep(ctx, jitter.ExponentialBackoff(w.cfg.BackoffBase, w.cfg.BackoffMax, try, jitter.DefaultJitter)); err != nil {
			return
		}
	}

	w.reporter.Report(cause, map[string]string{
		"photo_id": job.PhotoID,
		"stage":    string(dl.Stage),
		"delivery": job.DeliveryKey(),
	})
	w.logger.Warnf("Job dead-lettered, photo_id=%s stage=%s attempts=%d", job.PhotoID, dl.Stage, attempt)

	if w.ack(ctx, job) {
		w.resetAttempts(ctx, job)
	}
}

// ack повторяет подтверждение до успеха или остановки обработчика.
func (w *Worker) ack(ctx context.Context, job *domain.Job) bool {
	for try := 0; ; try++ {
		ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
		err := w.consumer.Ack(ackCtx, job)
		cancel()
		if err == nil {
			return true
		}

		w.logger.Errorf(err, "Ack failed, photo_id=%s stage=%s", job.PhotoID, domain.StageAck)
		if err := jitter.Sleep(ctx, jitter.ExponentialBackoff(w.cfg.BackoffBase, w.cfg.BackoffMax, try, jitter.DefaultJitter)); err != nil {
			return false
		}
	}
}
