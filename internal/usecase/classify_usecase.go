package usecase

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/shopspring/decimal"
)

// ClassificationUseCase выполняет шаги обработки задачи: скачивание, классификацию,
// запись тегов, миниатюру и связывание миниатюры с оригиналом.
// Каждый шаг безопасно повторять при повторной доставке.
type ClassificationUseCase struct {
	store          BlobStore
	classifier     Classifier
	thumbnails     ThumbnailGenerator
	metadataSource MetadataSource
	cacheRepo      CacheRepository
	threshold      decimal.Decimal
	maxPhotoSize   int64
	logger         logger.Logger
	now            func() time.Time
}

func NewClassificationUC(
	store BlobStore,
	classifier Classifier,
	thumbnails ThumbnailGenerator,
	metadataSource MetadataSource,
	cacheRepo CacheRepository,
	threshold decimal.Decimal,
	maxPhotoSize int64,
	logger logger.Logger,
) *ClassificationUseCase {
	return &ClassificationUseCase{
		store:          store,
		classifier:     classifier,
		thumbnails:     thumbnails,
		metadataSource: metadataSource,
		cacheRepo:      cacheRepo,
		threshold:      threshold,
		maxPhotoSize:   maxPhotoSize,
		logger:         logger,
		now:            time.Now,
	}
}

// ProcessJob обрабатывает задачу для фотографии photoID. Ошибка всегда содержит *domain.StageError.
// Подтверждение задачи остаётся за вызывающим и допустимо только при nil.
func (c *ClassificationUseCase) ProcessJob(ctx context.Context, photoID string) error {
	const op = "ClassificationUseCase.ProcessJob"

	if photoID == "" {
		return e.Wrap(op, domain.NewStageError(domain.StageDownload, e.ErrEmptyJobToken))
	}

	// 1. Скачивание оригинала целиком: модели и перекодированию нужно всё изображение
	photo, data, err := c.download(ctx, photoID)
	if err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageDownload, err))
	}

	// 2. Классификация
	labels, err := c.classifier.Classify(ctx, data)
	if err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageClassify, err))
	}
	if err := domain.ValidateLabels(labels); err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageClassify, err))
	}

	// 3. Фильтрация по порогу
	tags := domain.ConfidentTags(labels, c.threshold)

	// 4. Запись тегов
	classifiedAt := c.now().UTC()
	photo, err = c.store.UpdateMetadata(ctx, domain.NamespaceOriginals, photoID, domain.MetadataPatch{
		Tags:         &tags,
		ClassifiedAt: &classifiedAt,
	})
	if err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageTag, err))
	}
	c.invalidate(ctx, photoID)

	// 5. Выбор метаданных для миниатюры
	thumbMeta, err := c.metadataSource.Resolve(ctx, photo, tags)
	if err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageLookup, err))
	}

	// 6. Генерация миниатюры
	thumb, err := c.thumbnails.Generate(data)
	if err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageThumbnail, err))
	}

	// 7. Запись миниатюры под идентификатором фотографии (перезапись при повторе)
	err = c.store.Put(ctx, domain.NamespaceThumbnails, photoID, bytes.NewReader(thumb), int64(len(thumb)),
		domain.NewThumbnailMetadata(*thumbMeta))
	if err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageStoreThumbnail, err))
	}

	// 8. Ссылка на миниатюру в оригинале
	thumbID := photoID
	if _, err := c.store.UpdateMetadata(ctx, domain.NamespaceOriginals, photoID, domain.MetadataPatch{
		ThumbnailID: &thumbID,
	}); err != nil {
		return e.Wrap(op, domain.NewStageError(domain.StageLinkThumbnail, err))
	}
	c.invalidate(ctx, photoID)

	c.logger.Infof("photo classified, photo_id=%s tags=%v labels=%d metadata_mode=%s", photoID, tags, len(labels), c.metadataSource.Mode())
	return nil
}

// download читает оригинал в память с ограничением размера.
func (c *ClassificationUseCase) download(ctx context.Context, photoID string) (*domain.Blob, []byte, error) {
	body, photo, err := c.store.OpenReadStream(ctx, domain.NamespaceOriginals, photoID)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	var reader io.Reader = body
	if c.maxPhotoSize > 0 {
		reader = io.LimitReader(body, c.maxPhotoSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}

	if c.maxPhotoSize > 0 && int64(len(data)) > c.maxPhotoSize {
		return nil, nil, e.ErrPhotoTooLarge
	}

	return photo, data, nil
}

func (c *ClassificationUseCase) invalidate(ctx context.Context, photoID string) {
	if err := c.cacheRepo.DeletePhoto(ctx, photoID); err != nil {
		c.logger.Warnf("photo cache invalidation failed, photo_id=%s: %v", photoID, err)
	}
}
