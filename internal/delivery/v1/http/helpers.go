package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/jimlawless/whereami"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NotFoundResponse — ответ на запрос несуществующего ресурса.
type NotFoundResponse struct {
	Error string `json:"error"`
}

// UploadResponse — идентификатор принятой фотографии.
type UploadResponse struct {
	ID string `json:"id"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Failed string `json:"failed,omitempty"`
}

// UploadForm — текстовые поля формы загрузки.
type UploadForm struct {
	BusinessID string `validate:"required,max=128"`
	Caption    string `validate:"required,max=1024"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrMissingFile):
		return http.StatusBadRequest, e.ErrMissingFile.Error()
	case errors.Is(err, e.ErrInvalidFormField):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusBadRequest, e.ErrUnsupportedMediaType.Error()
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, e.ErrNotFound.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

// WriteNotFound отвечает 404 с путём запрошенного ресурса.
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusNotFound, NotFoundResponse{
		Error: fmt.Sprintf("Requested resource %s does not exist", r.URL.Path),
	})
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %v", e.ErrStatusBadRequest, err))
	}

	return nil
}

// parseUploadForm проверяет текстовые поля формы.
func parseUploadForm(r *http.Request, v *validator.Validate) (*UploadForm, error) {
	form := &UploadForm{
		BusinessID: r.FormValue("businessId"),
		Caption:    r.FormValue("caption"),
	}

	if err := v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return nil, e.Wrap(fe.Field(), e.ErrMissingFields)
			}
		}
		return nil, fmt.Errorf("%w: %s must be at most %s characters", e.ErrInvalidFormField, verrs[0].Field(), verrs[0].Param())
	}

	return form, nil
}

// openUploadFile открывает файл формы и определяет его тип по содержимому.
// Возвращённый файл перемотан в начало; закрыть его обязан вызывающий.
func openUploadFile(r *http.Request, maxSize int64) (multipart.File, *multipart.FileHeader, string, error) {
	file, fh, err := r.FormFile("file")
	if err != nil {
		return nil, nil, "", e.Wrap(whereami.WhereAmI(), e.ErrMissingFile)
	}

	if fh.Size > maxSize {
		file.Close()
		return nil, nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType, err := detectMIME(file)
	if err != nil {
		file.Close()
		return nil, nil, "", err
	}

	return file, fh, mimeType, nil
}

// detectMIME определяет тип по первым байтам и отклоняет всё, кроме jpeg и png.
func detectMIME(file io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	if !domain.IsAllowedPhotoMIME(mtype.String()) {
		return "", e.Wrap(mtype.String(), e.ErrUnsupportedMediaType)
	}

	return mtype.String(), nil
}
