package converter

import (
	"slices"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
)

type BlobConverter interface {
	ToModel(entity *domain.Blob) *BlobMetadataModel
	ToEntity(model *BlobMetadataModel) *domain.Blob
	ToArrEntity(models []BlobMetadataModel) []domain.Blob
}

type blobConverter struct{}

func NewBlobConverter() BlobConverter {
	return blobConverter{}
}

// ToModel переводит сущность в строку таблицы. Пустые теги хранятся как '{}', а не NULL.
func (blobConverter) ToModel(entity *domain.Blob) *BlobMetadataModel {
	if entity == nil {
		return nil
	}

	tags := slices.Clone(entity.Metadata.Tags)
	if tags == nil {
		tags = []string{}
	}

	return &BlobMetadataModel{
		Namespace:    string(entity.Namespace),
		ID:           entity.ID,
		BusinessID:   entity.Metadata.BusinessID,
		Caption:      entity.Metadata.Caption,
		MimeType:     entity.Metadata.MimeType,
		Tags:         tags,
		ThumbnailID:  entity.Metadata.ThumbnailID,
		ClassifiedAt: entity.Metadata.ClassifiedAt,
		Size:         entity.Size,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
}

func (blobConverter) ToEntity(model *BlobMetadataModel) *domain.Blob {
	if model == nil {
		return nil
	}

	tags := model.Tags
	if tags == nil {
		tags = []string{}
	}

	return &domain.Blob{
		ID:        model.ID,
		Namespace: domain.Namespace(model.Namespace),
		Size:      model.Size,
		Metadata: domain.BlobMetadata{
			BusinessID:   model.BusinessID,
			Caption:      model.Caption,
			MimeType:     model.MimeType,
			Tags:         tags,
			ThumbnailID:  model.ThumbnailID,
			ClassifiedAt: model.ClassifiedAt,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func (c blobConverter) ToArrEntity(models []BlobMetadataModel) []domain.Blob {
	out := make([]domain.Blob, 0, len(models))
	for i := range models {
		out = append(out, *c.ToEntity(&models[i]))
	}

	return out
}
