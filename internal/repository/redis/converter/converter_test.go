package converter

import (
	"encoding/json"
	"testing"

	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
)

func TestPhotoInfoThroughCache(t *testing.T) {
	conv := NewPhotoInfoConverter()

	in := &usecase.PhotoInfo{
		ID:         "P1",
		URL:        "/media/photos/P1",
		MimeType:   "image/jpeg",
		BusinessID: "B1",
		Caption:    "storefront cat",
		Tags:       []string{"tabby, tabby cat"},
		ThumbID:    "P1",
		ThumbURL:   "/media/thumbs/P1",
	}

	data, err := json.Marshal(conv.ToRedisModel(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var model PhotoInfoRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out := conv.ToUseCase(&model)
	if out.ID != in.ID || out.ThumbURL != in.ThumbURL || len(out.Tags) != 1 || out.Tags[0] != in.Tags[0] {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestToUseCaseNilTags(t *testing.T) {
	out := NewPhotoInfoConverter().ToUseCase(&PhotoInfoRedisModel{ID: "P1"})
	if out.Tags == nil {
		t.Fatal("tags must be an empty list, not nil")
	}
}
