package blobstore

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/jitter"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/google/uuid"
)

const (
	cleanupTimeout     = 30 * time.Second
	cleanupBackoffBase = time.Second
	cleanupBackoffMax  = 8 * time.Second
)

// BlobStore объединяет объектное хранилище (байты) и БД (метаданные).
// Объект всегда записывается раньше строки метаданных, поэтому найденная по метаданным запись имеет байты.
type BlobStore struct {
	objects         usecase.ObjectRepository
	metadata        usecase.MetadataRepository
	logger          logger.Logger
	shutdownCtx     context.Context
	wg              sync.WaitGroup
	cleanupAttempts int
	newID           func() string
}

func NewBlobStore(
	objects usecase.ObjectRepository,
	metadata usecase.MetadataRepository,
	cleanupAttempts int,
	logger logger.Logger,
	shutdownCtx context.Context,
) *BlobStore {
	if cleanupAttempts < 1 {
		cleanupAttempts = 1
	}

	return &BlobStore{
		objects:         objects,
		metadata:        metadata,
		logger:          logger,
		shutdownCtx:     shutdownCtx,
		cleanupAttempts: cleanupAttempts,
		newID:           uuid.NewString,
	}
}

// Store сохраняет новый объект под сгенерированным идентификатором.
// Если запись метаданных не удалась, загруженный объект удаляется в фоне.
func (b *BlobStore) Store(ctx context.Context, ns domain.Namespace, r io.Reader, size int64, meta domain.BlobMetadata) (string, error) {
	const op = "BlobStore.Store"

	if err := ns.Validate(); err != nil {
		return "", e.Wrap(op, err)
	}

	id := b.newID()
	if err := b.objects.Put(ctx, ns, id, r, size, meta.MimeType); err != nil {
		return "", e.Wrap(op, err)
	}

	if _, err := b.metadata.Create(ctx, domain.NewBlob(id, ns, size, meta)); err != nil {
		b.cleanup(ns, id)
		return "", e.Wrap(op, err)
	}

	return id, nil
}

// Put записывает объект под заданным идентификатором, перезаписывая и байты, и метаданные.
func (b *BlobStore) Put(ctx context.Context, ns domain.Namespace, id string, r io.Reader, size int64, meta domain.BlobMetadata) error {
	const op = "BlobStore.Put"

	if err := ns.Validate(); err != nil {
		return e.Wrap(op, err)
	}

	if err := b.objects.Put(ctx, ns, id, r, size, meta.MimeType); err != nil {
		return e.Wrap(op, err)
	}

	if _, err := b.metadata.Upsert(ctx, domain.NewBlob(id, ns, size, meta)); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func (b *BlobStore) FetchMetadata(ctx context.Context, ns domain.Namespace, id string) (*domain.Blob, error) {
	const op = "BlobStore.FetchMetadata"

	if err := ns.Validate(); err != nil {
		return nil, e.Wrap(op, err)
	}

	blob, err := b.metadata.Get(ctx, ns, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return blob, nil
}

// OpenReadStream открывает поток байтов объекта. Закрыть поток обязан вызывающий.
func (b *BlobStore) OpenReadStream(ctx context.Context, ns domain.Namespace, id string) (io.ReadCloser, *domain.Blob, error) {
	const op = "BlobStore.OpenReadStream"

	blob, err := b.FetchMetadata(ctx, ns, id)
	if err != nil {
		return nil, nil, e.Wrap(op, err)
	}

	body, err := b.objects.Get(ctx, ns, id)
	if err != nil {
		return nil, nil, e.Wrap(op, err)
	}

	return body, blob, nil
}

// UpdateMetadata атомарно применяет патч к метаданным существующего объекта.
func (b *BlobStore) UpdateMetadata(ctx context.Context, ns domain.Namespace, id string, patch domain.MetadataPatch) (*domain.Blob, error) {
	const op = "BlobStore.UpdateMetadata"

	if err := ns.Validate(); err != nil {
		return nil, e.Wrap(op, err)
	}

	blob, err := b.metadata.Update(ctx, ns, id, patch)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return blob, nil
}

// QueryByMetadataField возвращает объекты, у которых поле field равно value, в порядке загрузки.
func (b *BlobStore) QueryByMetadataField(ctx context.Context, ns domain.Namespace, field domain.MetadataField, value any) ([]domain.Blob, error) {
	const op = "BlobStore.QueryByMetadataField"

	if err := ns.Validate(); err != nil {
		return nil, e.Wrap(op, err)
	}

	if _, err := domain.ParseMetadataField(string(field)); err != nil {
		return nil, e.Wrap(op, err)
	}

	blobs, err := b.metadata.FindByField(ctx, ns, field, value)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return blobs, nil
}

func (b *BlobStore) cleanup(ns domain.Namespace, id string) {
	b.wg.Add(1)
	go b.cleanupObject(ns, id)
}

// cleanupObject удаляет объект без метаданных с экспоненциальной задержкой и jitter.
func (b *BlobStore) cleanupObject(ns domain.Namespace, id string) {
	defer b.wg.Done()
	const op = "BlobStore.cleanupObject"

	ctx, cancel := context.WithTimeout(b.shutdownCtx, cleanupTimeout)
	defer cancel()

	for attempt := 0; attempt < b.cleanupAttempts; attempt++ {
		err := b.objects.Delete(ctx, ns, id)
		if err == nil {
			b.logger.Infof("%s: removed orphaned object, namespace=%s id=%s", op, ns, id)
			return
		}

		b.logger.Warnf("%s: delete failed, namespace=%s id=%s attempt=%d: %v", op, ns, id, attempt+1, err)

		if attempt == b.cleanupAttempts-1 {
			break
		}

		if err := jitter.Sleep(ctx, jitter.ExponentialBackoff(cleanupBackoffBase, cleanupBackoffMax, attempt, jitter.DefaultJitter)); err != nil {
			b.logger.Warnf("%s: cleanup interrupted by shutdown, namespace=%s id=%s", op, ns, id)
			return
		}
	}

	b.logger.Errorf(fmt.Errorf("object %s/%s left without metadata", ns, id), "%s: cleanup gave up", op)
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (b *BlobStore) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("blob store cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
