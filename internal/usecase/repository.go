package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
)

// ObjectRepository хранит байты объектов (по бакету на пространство имён).
type ObjectRepository interface {
	Put(ctx context.Context, ns domain.Namespace, id string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, ns domain.Namespace, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, ns domain.Namespace, id string) error
}

// MetadataRepository хранит метаданные объектов.
type MetadataRepository interface {
	Create(ctx context.Context, blob *domain.Blob) (*domain.Blob, error)
	Upsert(ctx context.Context, blob *domain.Blob) (*domain.Blob, error)
	Get(ctx context.Context, ns domain.Namespace, id string) (*domain.Blob, error)
	Update(ctx context.Context, ns domain.Namespace, id string, patch domain.MetadataPatch) (*domain.Blob, error)
	FindByField(ctx context.Context, ns domain.Namespace, field domain.MetadataField, value any) ([]domain.Blob, error)
}

// CacheRepository кэширует карточки фотографий.
type CacheRepository interface {
	GetPhoto(ctx context.Context, id string) (*PhotoInfo, error)
	SetPhoto(ctx context.Context, photo *PhotoInfo) error
	DeletePhoto(ctx context.Context, id string) error
}

// AttemptRepository считает попытки обработки одной доставки задачи.
type AttemptRepository interface {
	Increment(ctx context.Context, deliveryKey string) (int, error)
	Reset(ctx context.Context, deliveryKey string) error
}
