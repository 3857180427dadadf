package usecase

import (
	"io"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
)

const (
	photoMediaPrefix = "/media/photos/"
	thumbMediaPrefix = "/media/thumbs/"
)

// PHOTO USECASE

// UploadPhotoReq — запрос на загрузку оригинала.
type UploadPhotoReq struct {
	File       io.Reader
	Size       int64
	MimeType   string // определён по содержимому файла
	BusinessID string
	Caption    string
}

// UploadPhotoRes — ответ на загрузку: присвоенный идентификатор.
type UploadPhotoRes struct {
	ID string
}

// PhotoInfo — карточка фотографии для внешнего использования.
type PhotoInfo struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	MimeType   string   `json:"mimetype"`
	BusinessID string   `json:"businessId"`
	Caption    string   `json:"caption"`
	Tags       []string `json:"tags"`
	ThumbID    string   `json:"thumbId,omitempty"`
	ThumbURL   string   `json:"thumbUrl,omitempty"`
}

// MediaStream — поток байтов объекта для отдачи клиенту.
type MediaStream struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ID          string
}

// MAPPERS

func NewUploadPhotoReq(file io.Reader, size int64, mimeType, businessID, caption string) *UploadPhotoReq {
	return &UploadPhotoReq{
		File:       file,
		Size:       size,
		MimeType:   mimeType,
		BusinessID: businessID,
		Caption:    caption,
	}
}

func NewUploadPhotoRes(id string) *UploadPhotoRes {
	return &UploadPhotoRes{ID: id}
}

// NewPhotoInfo строит карточку из метаданных оригинала.
func NewPhotoInfo(blob *domain.Blob) *PhotoInfo {
	tags := blob.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}

	info := &PhotoInfo{
		ID:         blob.ID,
		URL:        photoMediaPrefix + blob.ID,
		MimeType:   blob.Metadata.MimeType,
		BusinessID: blob.Metadata.BusinessID,
		Caption:    blob.Metadata.Caption,
		Tags:       tags,
	}

	if blob.Metadata.ThumbnailID != nil {
		info.ThumbID = *blob.Metadata.ThumbnailID
		info.ThumbURL = thumbMediaPrefix + *blob.Metadata.ThumbnailID
	}

	return info
}

func NewMediaStream(body io.ReadCloser, contentType string, size int64, id string) *MediaStream {
	return &MediaStream{
		Body:        body,
		ContentType: contentType,
		Size:        size,
		ID:          id,
	}
}
