package converter

import "time"

// BlobMetadataModel представляет запись таблицы blob_metadata в PostgreSQL.
type BlobMetadataModel struct {
	Namespace    string     `db:"namespace"`
	ID           string     `db:"id"`
	BusinessID   string     `db:"business_id"`
	Caption      string     `db:"caption"`
	MimeType     string     `db:"mime_type"`
	Tags         []string   `db:"tags"`
	ThumbnailID  *string    `db:"thumbnail_id"`
	ClassifiedAt *time.Time `db:"classified_at"`
	Size         int64      `db:"size"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}
