package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
)

// BlobStore — хранилище блобов с метаданными и двумя пространствами имён.
type BlobStore interface {
	Store(ctx context.Context, ns domain.Namespace, r io.Reader, size int64, meta domain.BlobMetadata) (string, error)
	Put(ctx context.Context, ns domain.Namespace, id string, r io.Reader, size int64, meta domain.BlobMetadata) error
	FetchMetadata(ctx context.Context, ns domain.Namespace, id string) (*domain.Blob, error)
	OpenReadStream(ctx context.Context, ns domain.Namespace, id string) (io.ReadCloser, *domain.Blob, error)
	UpdateMetadata(ctx context.Context, ns domain.Namespace, id string, patch domain.MetadataPatch) (*domain.Blob, error)
	QueryByMetadataField(ctx context.Context, ns domain.Namespace, field domain.MetadataField, value any) ([]domain.Blob, error)
}

// JobPublisher ставит задачу классификации в очередь.
type JobPublisher interface {
	Publish(ctx context.Context, photoID string) error
}

// JobConsumer выдаёт задачи по одной и подтверждает их после обработки.
type JobConsumer interface {
	Fetch(ctx context.Context) (*domain.Job, error)
	Ack(ctx context.Context, job *domain.Job) error
}

type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, dl *domain.DeadLetter) error
}

// Classifier — модель классификации. Warmup вызывается один раз при старте процесса.
type Classifier interface {
	Warmup(ctx context.Context) error
	Classify(ctx context.Context, image []byte) ([]domain.Label, error)
}

type ThumbnailGenerator interface {
	Generate(image []byte) ([]byte, error)
}

// MetadataSource выбирает метаданные, которыми помечается миниатюра.
type MetadataSource interface {
	Mode() string
	Resolve(ctx context.Context, photo *domain.Blob, tags []string) (*domain.BlobMetadata, error)
}

// ErrorReporter отправляет ошибки во внешнюю систему мониторинга.
type ErrorReporter interface {
	Report(err error, tags map[string]string)
}
