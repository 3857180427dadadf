package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/DRSN-tech/photo-pipeline/internal/infrastructure"
	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// MediaHandler отдаёт байты оригиналов и миниатюр.
type MediaHandler struct {
	photoUsecase usecase.PhotoUC
	logger       logger.Logger
}

func NewMediaHandler(photoUsecase usecase.PhotoUC, logger logger.Logger) *MediaHandler {
	return &MediaHandler{photoUsecase: photoUsecase, logger: logger}
}

// servePhoto
//
//	@Summary	Оригинал фотографии
//	@Tags		media
//	@Produce	image/jpeg,image/png
//	@Param		id	path	string	true	"Идентификатор фотографии"
//	@Success	200
//	@Failure	404	{object}	NotFoundResponse
//	@Router		/media/photos/{id} [get]
func (m *MediaHandler) servePhoto(w http.ResponseWriter, r *http.Request) {
	m.serve(w, r, m.photoUsecase.OpenPhoto)
}

// serveThumbnail
//
//	@Summary	Миниатюра фотографии
//	@Tags		media
//	@Produce	image/jpeg
//	@Param		id	path	string	true	"Идентификатор фотографии"
//	@Success	200
//	@Failure	404	{object}	NotFoundResponse
//	@Router		/media/thumbs/{id} [get]
func (m *MediaHandler) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	m.serve(w, r, m.photoUsecase.OpenThumbnail)
}

type openFunc func(ctx context.Context, id string) (*usecase.MediaStream, error)

// serve передаёт поток клиенту. После отправки заголовков ошибки копирования только логируются.
func (m *MediaHandler) serve(w http.ResponseWriter, r *http.Request, open openFunc) {
	id := chi.URLParam(r, "id")

	stream, err := open(r.Context(), id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			WriteNotFound(w, r)
			return
		}
		m.logger.Errorf(err, "open media failed, photo_id=%s path=%s", id, r.URL.Path)
		WriteError(w, err)
		return
	}
	defer stream.Body.Close()

	filename := stream.ID
	if ext, err := infrastructure.GetExtensionFromMIME(stream.ContentType); err != nil {
		m.logger.Warnf("unexpected stored mimetype %q, photo_id=%s", stream.ContentType, id)
	} else if ext != "" {
		filename += "." + ext
	}

	w.Header().Set("Content-Type", stream.ContentType)
	if stream.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.Size, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, stream.Body); err != nil {
		m.logger.Warnf("media stream interrupted, photo_id=%s: %v", id, err)
	}
}
