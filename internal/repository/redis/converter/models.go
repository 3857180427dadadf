package converter

// PhotoInfoRedisModel — представление карточки фотографии в кэше.
type PhotoInfoRedisModel struct {
	ID         string   `json:"id"`
	MimeType   string   `json:"mime_type"`
	BusinessID string   `json:"business_id"`
	Caption    string   `json:"caption"`
	Tags       []string `json:"tags"`
	ThumbID    string   `json:"thumb_id,omitempty"`
	URL        string   `json:"url"`
	ThumbURL   string   `json:"thumb_url,omitempty"`
}
