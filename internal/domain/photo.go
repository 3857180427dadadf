package domain

// Допустимые типы загружаемых фотографий.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var allowedPhotoMIMEs = map[string]struct{}{
	MimeJPEG: {},
	MimePNG:  {},
}

// IsAllowedPhotoMIME сообщает, можно ли принять загрузку с таким MIME-типом.
func IsAllowedPhotoMIME(mime string) bool {
	_, ok := allowedPhotoMIMEs[mime]
	return ok
}

// NewPhotoMetadata возвращает метаданные оригинала при загрузке: теги пусты, миниатюры нет.
func NewPhotoMetadata(businessID, caption, mimeType string) BlobMetadata {
	return BlobMetadata{
		BusinessID: businessID,
		Caption:    caption,
		MimeType:   mimeType,
		Tags:       []string{},
	}
}

// NewThumbnailMetadata копирует подмножество метаданных источника на миниатюру.
// MIME-тип всегда JPEG, так как миниатюра перекодируется.
func NewThumbnailMetadata(source BlobMetadata) BlobMetadata {
	return BlobMetadata{
		BusinessID: source.BusinessID,
		Caption:    source.Caption,
		MimeType:   MimeJPEG,
		Tags:       []string{},
	}
}

// Режимы выбора метаданных, которыми помечается миниатюра.
const (
	// MetadataModeTagMatch берёт метаданные первой фотографии с тем же набором тегов.
	// Результат может зависеть от других фотографий и не идемпотентен между повторами.
	MetadataModeTagMatch = "use-tag-match-metadata"
	// MetadataModeSource всегда берёт метаданные самой обрабатываемой фотографии.
	MetadataModeSource = "use-source-metadata"
)
