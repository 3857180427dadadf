package usecase

import (
	"context"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

// NewMetadataSource выбирает реализацию по режиму из конфигурации.
func NewMetadataSource(mode string, store BlobStore, logger logger.Logger) (MetadataSource, error) {
	switch mode {
	case domain.MetadataModeSource:
		return SourceMetadata{}, nil
	case domain.MetadataModeTagMatch:
		return NewTagMatchMetadata(store, logger), nil
	default:
		return nil, e.Wrap(mode, e.ErrUnknownMetadataMode)
	}
}

// SourceMetadata всегда использует метаданные обрабатываемой фотографии.
type SourceMetadata struct{}

func (SourceMetadata) Mode() string { return domain.MetadataModeSource }

func (SourceMetadata) Resolve(_ context.Context, photo *domain.Blob, _ []string) (*domain.BlobMetadata, error) {
	meta := photo.Metadata
	return &meta, nil
}

// TagMatchMetadata берёт метаданные первой (по времени загрузки) фотографии,
// чей набор тегов совпадает с только что вычисленным.
type TagMatchMetadata struct {
	store  BlobStore
	logger logger.Logger
}

func NewTagMatchMetadata(store BlobStore, logger logger.Logger) *TagMatchMetadata {
	return &TagMatchMetadata{store: store, logger: logger}
}

func (t *TagMatchMetadata) Mode() string { return domain.MetadataModeTagMatch }

func (t *TagMatchMetadata) Resolve(ctx context.Context, photo *domain.Blob, tags []string) (*domain.BlobMetadata, error) {
	const op = "TagMatchMetadata.Resolve"

	matches, err := t.store.QueryByMetadataField(ctx, domain.NamespaceOriginals, domain.FieldTags, tags)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(matches) == 0 {
		t.logger.Warnf("no photo matches tags %v, using own metadata, photo_id=%s", tags, photo.ID)
		meta := photo.Metadata
		return &meta, nil
	}

	match := matches[0]
	if match.ID != photo.ID {
		t.logger.Infof("thumbnail metadata taken from another photo, photo_id=%s source_photo_id=%s", photo.ID, match.ID)
	}

	return &match.Metadata, nil
}
