package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

type fakeConsumer struct {
	mu     sync.Mutex
	queue  []*domain.Job
	acked  []string
	ackErr int // сколько первых подтверждений завершится ошибкой
}

func newFakeConsumer(ids ...string) *fakeConsumer {
	c := &fakeConsumer{}
	for i, id := range ids {
		c.queue = append(c.queue, domain.NewJob(id, "photo-jobs", 0, int64(i)))
	}
	return c
}

func (c *fakeConsumer) Fetch(ctx context.Context) (*domain.Job, error) {
	c.mu.Lock()
	if len(c.queue) > 0 {
		job := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		return job, nil
	}
	c.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeConsumer) Ack(_ context.Context, job *domain.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ackErr > 0 {
		c.ackErr--
		return errors.New("coordinator not available")
	}
	c.acked = append(c.acked, job.PhotoID)
	return nil
}

func (c *fakeConsumer) ackedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.acked...)
}

type fakeDeadLetters struct {
	mu      sync.Mutex
	letters []*domain.DeadLetter
	failN   int
}

func (f *fakeDeadLetters) PublishDeadLetter(_ context.Context, dl *domain.DeadLetter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return errors.New("broker not available")
	}
	f.letters = append(f.letters, dl)
	return nil
}

func (f *fakeDeadLetters) all() []*domain.DeadLetter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.DeadLetter(nil), f.letters...)
}

type fakeAttempts struct {
	mu     sync.Mutex
	counts map[string]int
	resets int
}

func newFakeAttempts() *fakeAttempts { return &fakeAttempts{counts: map[string]int{}} }

func (f *fakeAttempts) Increment(_ context.Context, key string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeAttempts) Reset(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, key)
	f.resets++
	return nil
}

// fakeUC возвращает результаты из results по очереди, последний результат повторяется.
type fakeUC struct {
	mu      sync.Mutex
	results map[string][]error
	calls   map[string]int
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func newFakeUC() *fakeUC {
	return &fakeUC{results: map[string][]error{}, calls: map[string]int{}}
}

func (f *fakeUC) ProcessJob(_ context.Context, photoID string) error {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[photoID]++
	if errs := f.results[photoID]; len(errs) > 0 {
		err := errs[0]
		if len(errs) > 1 {
			f.results[photoID] = errs[1:]
		}
		return err
	}
	return nil
}

func (f *fakeUC) callsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type fakeReporter struct {
	mu   sync.Mutex
	tags []map[string]string
}

func (f *fakeReporter) Report(_ error, tags map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tags)
}

type harness struct {
	worker   *Worker
	consumer *fakeConsumer
	dlq      *fakeDeadLetters
	attempts *fakeAttempts
	uc       *fakeUC
	reporter *fakeReporter
}

func newHarness(t *testing.T, ids ...string) *harness {
	t.Helper()
	h := &harness{
		consumer: newFakeConsumer(ids...),
		dlq:      &fakeDeadLetters{},
		attempts: newFakeAttempts(),
		uc:       newFakeUC(),
		reporter: &fakeReporter{},
	}
	h.worker = NewWorker(h.consumer, h.dlq, h.attempts, h.uc, h.reporter, &cfg.WorkerCfg{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		Prefetch:    2,
		JobTimeout:  time.Second,
	}, logger.Nop{})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.worker.Start(context.Background())
	t.Cleanup(h.worker.Stop)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWorkerAcksSuccessfulJobsInOrder(t *testing.T) {
	h := newHarness(t, "P1", "P2", "P3")
	h.start(t)

	waitFor(t, "three acks", func() bool { return len(h.consumer.ackedIDs()) == 3 })

	acked := h.consumer.ackedIDs()
	if acked[0] != "P1" || acked[1] != "P2" || acked[2] != "P3" {
		t.Fatalf("acked = %v", acked)
	}
	if len(h.dlq.all()) != 0 {
		t.Fatal("no job should be dead-lettered")
	}
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	h := newHarness(t, "P1")
	transient := domain.NewStageError(domain.StageStoreThumbnail, errors.New("minio timeout"))
	h.uc.results["P1"] = []error{transient, transient, nil}
	h.start(t)

	waitFor(t, "ack", func() bool { return len(h.consumer.ackedIDs()) == 1 })

	if got := h.uc.callsFor("P1"); got != 3 {
		t.Fatalf("ProcessJob calls = %d, want 3", got)
	}
	if len(h.dlq.all()) != 0 {
		t.Fatal("recovered job must not be dead-lettered")
	}
}

func TestWorkerDeadLettersAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, "P1", "P2")
	h.uc.results["P1"] = []error{domain.NewStageError(domain.StageClassify, errors.New("onnx failure"))}
	h.start(t)

	waitFor(t, "both acks", func() bool { return len(h.consumer.ackedIDs()) == 2 })

	letters := h.dlq.all()
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	if letters[0].PhotoID != "P1" || letters[0].Stage != domain.StageClassify || letters[0].Attempts != 3 {
		t.Fatalf("unexpected dead letter: %+v", letters[0])
	}
	if h.uc.callsFor("P1") != 3 {
		t.Fatalf("ProcessJob calls = %d, want 3", h.uc.callsFor("P1"))
	}
	if len(h.reporter.tags) != 1 || h.reporter.tags[0]["stage"] != "classify" {
		t.Fatalf("unexpected reports: %v", h.reporter.tags)
	}
}

func TestWorkerDeadLettersPermanentFailureImmediately(t *testing.T) {
	h := newHarness(t, "gone")
	h.uc.results["gone"] = []error{domain.NewStageError(domain.StageDownload, e.ErrNotFound)}
	h.start(t)

	waitFor(t, "ack", func() bool { return len(h.consumer.ackedIDs()) == 1 })

	if h.uc.callsFor("gone") != 1 {
		t.Fatalf("permanent failure retried %d times", h.uc.callsFor("gone"))
	}
	if letters := h.dlq.all(); len(letters) != 1 || letters[0].Stage != domain.StageDownload {
		t.Fatalf("unexpected dead letters: %+v", letters)
	}
}

func TestWorkerAcksOnlyAfterDeadLetterIsWritten(t *testing.T) {
	h := newHarness(t, "gone")
	h.uc.results["gone"] = []error{domain.NewStageError(domain.StageDownload, e.ErrNotFound)}
	h.dlq.failN = 2
	h.start(t)

	waitFor(t, "ack", func() bool { return len(h.consumer.ackedIDs()) == 1 })

	if len(h.dlq.all()) != 1 {
		t.Fatal("dead letter must eventually be written")
	}
}

func TestWorkerRetriesAck(t *testing.T) {
	h := newHarness(t, "P1")
	h.consumer.ackErr = 2
	h.start(t)

	waitFor(t, "ack", func() bool { return len(h.consumer.ackedIDs()) == 1 })

	if h.uc.callsFor("P1") != 1 {
		t.Fatal("failed ack must not re-run processing")
	}
}

func TestWorkerStopLeavesFailingJobUnacknowledged(t *testing.T) {
	h := newHarness(t, "P1")
	h.worker.cfg.BackoffBase = time.Hour
	h.worker.cfg.BackoffMax = time.Hour
	h.uc.results["P1"] = []error{domain.NewStageError(domain.StageTag, errors.New("postgres down"))}

	h.worker.Start(context.Background())
	waitFor(t, "first attempt", func() bool { return h.uc.callsFor("P1") == 1 })

	done := make(chan struct{})
	go func() {
		h.worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	if len(h.consumer.ackedIDs()) != 0 {
		t.Fatal("failed job must stay unacknowledged for redelivery")
	}
	if len(h.dlq.all()) != 0 {
		t.Fatal("job must not be dead-lettered on shutdown")
	}
}

func TestWorkerFinishesInFlightJobOnStop(t *testing.T) {
	h := newHarness(t, "P1")
	h.uc.block = make(chan struct{})
	h.uc.started = make(chan struct{})

	h.worker.Start(context.Background())
	<-h.uc.started

	done := make(chan struct{})
	go func() {
		h.worker.Stop()
		close(done)
	}()

	close(h.uc.block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	if acked := h.consumer.ackedIDs(); len(acked) != 1 || acked[0] != "P1" {
		t.Fatalf("in-flight job must be acknowledged, acked = %v", acked)
	}
}
