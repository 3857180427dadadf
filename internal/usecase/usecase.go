package usecase

import "context"

// PhotoUC — сценарии загрузки и чтения фотографий.
type PhotoUC interface {
	UploadPhoto(ctx context.Context, req *UploadPhotoReq) (*UploadPhotoRes, error)
	GetPhoto(ctx context.Context, id string) (*PhotoInfo, error)
	ListBusinessPhotos(ctx context.Context, businessID string) ([]PhotoInfo, error)
	OpenPhoto(ctx context.Context, id string) (*MediaStream, error)
	OpenThumbnail(ctx context.Context, id string) (*MediaStream, error)
}

// ClassifyUC — обработка одной задачи классификации (шаги до подтверждения).
type ClassifyUC interface {
	ProcessJob(ctx context.Context, photoID string) error
}
