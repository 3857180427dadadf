package http

import (
	"errors"
	"net/http"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type PhotoHandler struct {
	photoUsecase usecase.PhotoUC
	validate     *validator.Validate
	cfg          *cfg.UploadCfg
	logger       logger.Logger
}

func NewPhotoHandler(photoUsecase usecase.PhotoUC, cfg *cfg.UploadCfg, logger logger.Logger) *PhotoHandler {
	return &PhotoHandler{
		photoUsecase: photoUsecase,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		cfg:          cfg,
		logger:       logger,
	}
}

// uploadPhoto
//
//	@Summary		Загрузка фотографии
//	@Description	Сохраняет оригинал и ставит задачу классификации в очередь
//	@Tags			photos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file			true	"Фотография (jpeg или png)"
//	@Param			businessId	formData	string			true	"Идентификатор бизнеса"
//	@Param			caption		formData	string			true	"Подпись"
//	@Success		201			{object}	UploadResponse	"Фотография принята"
//	@Failure		400			{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		413			{object}	ErrorResponse	"Файл слишком большой"
//	@Failure		500			{object}	ErrorResponse	"Внутренняя ошибка"
//	@Router			/photos [post]
func (p *PhotoHandler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	// Заголовки формы занимают немного места сверх самого файла
	const formOverhead = 1 << 20

	r.Body = http.MaxBytesReader(w, r.Body, p.cfg.MaxFileSize+formOverhead)

	if err := ensureMultipartForm(r, p.cfg.MaxMemory); err != nil {
		p.logger.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, err)
		return
	}
	// Временные файлы формы удаляются на любом пути выхода
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			p.logger.Warnf("multipart cleanup failed: %v", err)
		}
	}()

	form, err := parseUploadForm(r, p.validate)
	if err != nil {
		p.logger.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, err)
		return
	}

	file, fh, mimeType, err := openUploadFile(r, p.cfg.MaxFileSize)
	if err != nil {
		p.logger.Warnf("upload rejected: %v", err)
		WriteError(w, err)
		return
	}
	defer file.Close()

	res, err := p.photoUsecase.UploadPhoto(r.Context(),
		usecase.NewUploadPhotoReq(file, fh.Size, mimeType, form.BusinessID, form.Caption))
	if err != nil {
		p.logger.Errorf(err, "upload failed, business_id=%s", form.BusinessID)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, UploadResponse{ID: res.ID})
}

// getPhoto
//
//	@Summary		Карточка фотографии
//	@Tags			photos
//	@Produce		json
//	@Param			id	path		string	true	"Идентификатор фотографии"
//	@Success		200	{object}	usecase.PhotoInfo
//	@Failure		404	{object}	NotFoundResponse
//	@Router			/photos/{id} [get]
func (p *PhotoHandler) getPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := p.photoUsecase.GetPhoto(r.Context(), id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			WriteNotFound(w, r)
			return
		}
		p.logger.Errorf(err, "get photo failed, photo_id=%s", id)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, info)
}

// listBusinessPhotos
//
//	@Summary		Фотографии бизнеса
//	@Tags			photos
//	@Produce		json
//	@Param			businessId	path		string	true	"Идентификатор бизнеса"
//	@Success		200			{array}		usecase.PhotoInfo
//	@Router			/businesses/{businessId}/photos [get]
func (p *PhotoHandler) listBusinessPhotos(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessId")

	photos, err := p.photoUsecase.ListBusinessPhotos(r.Context(), businessID)
	if err != nil {
		p.logger.Errorf(err, "list photos failed, business_id=%s", businessID)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, photos)
}
