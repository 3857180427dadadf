package infrastructure

import (
	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
)

// GetExtensionFromMIME возвращает расширение файла по MIME-типу фотографии.
// Поддерживает jpeg и png. Возвращает ошибку e.ErrUnsupportedMediaType для остальных типов.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case domain.MimeJPEG, "image/jpg":
		return "jpg", nil
	case domain.MimePNG:
		return "png", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}
