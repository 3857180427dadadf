package converter

import (
	"slices"

	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
)

type PhotoInfoConverter interface {
	ToRedisModel(entity *usecase.PhotoInfo) *PhotoInfoRedisModel
	ToUseCase(model *PhotoInfoRedisModel) *usecase.PhotoInfo
}

type photoInfoConverter struct{}

func NewPhotoInfoConverter() PhotoInfoConverter {
	return photoInfoConverter{}
}

func (photoInfoConverter) ToRedisModel(entity *usecase.PhotoInfo) *PhotoInfoRedisModel {
	if entity == nil {
		return nil
	}

	return &PhotoInfoRedisModel{
		ID:         entity.ID,
		MimeType:   entity.MimeType,
		BusinessID: entity.BusinessID,
		Caption:    entity.Caption,
		Tags:       slices.Clone(entity.Tags),
		ThumbID:    entity.ThumbID,
		URL:        entity.URL,
		ThumbURL:   entity.ThumbURL,
	}
}

func (photoInfoConverter) ToUseCase(model *PhotoInfoRedisModel) *usecase.PhotoInfo {
	if model == nil {
		return nil
	}

	tags := slices.Clone(model.Tags)
	if tags == nil {
		tags = []string{}
	}

	return &usecase.PhotoInfo{
		ID:         model.ID,
		URL:        model.URL,
		MimeType:   model.MimeType,
		BusinessID: model.BusinessID,
		Caption:    model.Caption,
		Tags:       tags,
		ThumbID:    model.ThumbID,
		ThumbURL:   model.ThumbURL,
	}
}
