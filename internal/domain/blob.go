package domain

import (
	"slices"
	"time"

	"github.com/DRSN-tech/photo-pipeline/pkg/e"
)

// Namespace — независимое пространство идентификаторов в хранилище блобов.
type Namespace string

const (
	NamespaceOriginals  Namespace = "originals"
	NamespaceThumbnails Namespace = "thumbnails"
)

// Validate возвращает e.ErrUnknownNamespace для неизвестных пространств.
func (n Namespace) Validate() error {
	switch n {
	case NamespaceOriginals, NamespaceThumbnails:
		return nil
	default:
		return e.Wrap(string(n), e.ErrUnknownNamespace)
	}
}

// BlobMetadata — структурированные метаданные объекта.
type BlobMetadata struct {
	BusinessID   string
	Caption      string
	MimeType     string
	Tags         []string
	ThumbnailID  *string
	ClassifiedAt *time.Time
}

// Blob описывает объект хранилища: байты лежат в объектном хранилище, метаданные в БД.
type Blob struct {
	ID        string
	Namespace Namespace
	Size      int64
	Metadata  BlobMetadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBlob(id string, ns Namespace, size int64, meta BlobMetadata) *Blob {
	return &Blob{
		ID:        id,
		Namespace: ns,
		Size:      size,
		Metadata:  meta,
	}
}

// MetadataPatch — частичное обновление метаданных. nil-поля не меняются.
type MetadataPatch struct {
	BusinessID   *string
	Caption      *string
	MimeType     *string
	Tags         *[]string
	ThumbnailID  *string
	ClassifiedAt *time.Time
}

// IsEmpty сообщает, что патч ничего не меняет.
func (p MetadataPatch) IsEmpty() bool {
	return p.BusinessID == nil && p.Caption == nil && p.MimeType == nil &&
		p.Tags == nil && p.ThumbnailID == nil && p.ClassifiedAt == nil
}

// Merge применяет патч поверх текущих метаданных и возвращает новую копию.
// Повторное применение того же патча даёт тот же результат.
func (m BlobMetadata) Merge(p MetadataPatch) BlobMetadata {
	out := m
	out.Tags = slices.Clone(m.Tags)

	if p.BusinessID != nil {
		out.BusinessID = *p.BusinessID
	}
	if p.Caption != nil {
		out.Caption = *p.Caption
	}
	if p.MimeType != nil {
		out.MimeType = *p.MimeType
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(*p.Tags)
		if out.Tags == nil {
			out.Tags = []string{}
		}
	}
	if p.ThumbnailID != nil {
		id := *p.ThumbnailID
		out.ThumbnailID = &id
	}
	if p.ClassifiedAt != nil {
		at := *p.ClassifiedAt
		out.ClassifiedAt = &at
	}

	return out
}

// MetadataField — поле метаданных, по которому допустим поиск.
type MetadataField string

const (
	FieldBusinessID  MetadataField = "businessId"
	FieldCaption     MetadataField = "caption"
	FieldMimeType    MetadataField = "mimetype"
	FieldTags        MetadataField = "tags"
	FieldThumbnailID MetadataField = "thumbnailId"
)

// ParseMetadataField проверяет имя поля.
func ParseMetadataField(s string) (MetadataField, error) {
	switch f := MetadataField(s); f {
	case FieldBusinessID, FieldCaption, FieldMimeType, FieldTags, FieldThumbnailID:
		return f, nil
	default:
		return "", e.Wrap(s, e.ErrUnknownMetadataField)
	}
}
