package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

// PhotoUseCase реализует загрузку оригиналов и чтение карточек и медиа.
type PhotoUseCase struct {
	store     BlobStore
	publisher JobPublisher
	cacheRepo CacheRepository
	logger    logger.Logger
	uploadSem chan struct{}
}

func NewPhotoUC(
	store BlobStore,
	publisher JobPublisher,
	cacheRepo CacheRepository,
	logger logger.Logger,
	maxConcurrentUploads int,
) *PhotoUseCase {
	if maxConcurrentUploads < 1 {
		maxConcurrentUploads = 1
	}

	return &PhotoUseCase{
		store:     store,
		publisher: publisher,
		cacheRepo: cacheRepo,
		logger:    logger,
		uploadSem: make(chan struct{}, maxConcurrentUploads),
	}
}

// UploadPhoto сохраняет оригинал и только после успешной записи ставит задачу в очередь.
// Невалидный запрос отклоняется до любых побочных эффектов.
func (p *PhotoUseCase) UploadPhoto(ctx context.Context, req *UploadPhotoReq) (*UploadPhotoRes, error) {
	const op = "PhotoUseCase.UploadPhoto"

	if err := p.validateUpload(req); err != nil {
		return nil, e.Wrap(op, err)
	}

	// Ограничиваем число одновременных записей в хранилище
	select {
	case p.uploadSem <- struct{}{}:
	case <-ctx.Done():
		return nil, e.Wrap(op, ctx.Err())
	}
	defer func() { <-p.uploadSem }()

	meta := domain.NewPhotoMetadata(req.BusinessID, req.Caption, req.MimeType)
	id, err := p.store.Store(ctx, domain.NamespaceOriginals, req.File, req.Size, meta)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := p.publisher.Publish(ctx, id); err != nil {
		p.logger.Errorf(err, "photo stored but job was not published, photo_id=%s", id)
		return nil, e.Wrap(op, err)
	}

	p.logger.Infof("photo accepted, photo_id=%s business_id=%s mimetype=%s size=%d", id, req.BusinessID, req.MimeType, req.Size)
	return NewUploadPhotoRes(id), nil
}

// GetPhoto возвращает карточку фотографии, сначала из кэша, затем из хранилища.
// В кэш попадают только карточки с привязанной миниатюрой: привязка последняя запись воркера,
// и более поздней инвалидации для такой карточки не будет.
func (p *PhotoUseCase) GetPhoto(ctx context.Context, id string) (*PhotoInfo, error) {
	const op = "PhotoUseCase.GetPhoto"

	if cached, err := p.cacheRepo.GetPhoto(ctx, id); err != nil {
		p.logger.Warnf("photo cache read failed, photo_id=%s: %v", id, err)
	} else if cached != nil {
		return cached, nil
	}

	blob, err := p.store.FetchMetadata(ctx, domain.NamespaceOriginals, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	info := NewPhotoInfo(blob)
	if blob.Metadata.ThumbnailID == nil {
		return info, nil
	}

	// Фоновое добавление карточки в кэш
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		if err := p.cacheRepo.SetPhoto(bgCtx, info); err != nil {
			p.logger.Warnf("Failed to cache photo in background: %v", e.Wrap(op, err))
		}
	}()

	return info, nil
}

// ListBusinessPhotos возвращает карточки всех фотографий бизнеса в порядке загрузки.
func (p *PhotoUseCase) ListBusinessPhotos(ctx context.Context, businessID string) ([]PhotoInfo, error) {
	const op = "PhotoUseCase.ListBusinessPhotos"

	if strings.TrimSpace(businessID) == "" {
		return nil, e.Wrap(op, e.ErrMissingFields)
	}

	blobs, err := p.store.QueryByMetadataField(ctx, domain.NamespaceOriginals, domain.FieldBusinessID, businessID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	photos := make([]PhotoInfo, 0, len(blobs))
	for i := range blobs {
		photos = append(photos, *NewPhotoInfo(&blobs[i]))
	}

	return photos, nil
}

// OpenPhoto открывает поток оригинала. Вызывающий обязан закрыть Body.
func (p *PhotoUseCase) OpenPhoto(ctx context.Context, id string) (*MediaStream, error) {
	const op = "PhotoUseCase.OpenPhoto"

	body, blob, err := p.store.OpenReadStream(ctx, domain.NamespaceOriginals, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return NewMediaStream(body, blob.Metadata.MimeType, blob.Size, blob.ID), nil
}

// OpenThumbnail открывает поток миниатюры; миниатюры всегда в JPEG.
func (p *PhotoUseCase) OpenThumbnail(ctx context.Context, id string) (*MediaStream, error) {
	const op = "PhotoUseCase.OpenThumbnail"

	body, blob, err := p.store.OpenReadStream(ctx, domain.NamespaceThumbnails, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return NewMediaStream(body, domain.MimeJPEG, blob.Size, blob.ID), nil
}

func (p *PhotoUseCase) validateUpload(req *UploadPhotoReq) error {
	if req == nil || req.File == nil {
		return e.ErrMissingFile
	}

	if strings.TrimSpace(req.BusinessID) == "" || strings.TrimSpace(req.Caption) == "" {
		return e.ErrMissingFields
	}

	if !domain.IsAllowedPhotoMIME(req.MimeType) {
		return e.Wrap(req.MimeType, e.ErrUnsupportedMediaType)
	}

	return nil
}
