package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestSwaggerDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc()
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}

	var parsed struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("swagger doc is not valid JSON: %v", err)
	}

	for _, path := range []string{"/photos", "/photos/{id}", "/businesses/{businessId}/photos", "/media/photos/{id}", "/media/thumbs/{id}", "/healthz"} {
		if _, ok := parsed.Paths[path]; !ok {
			t.Fatalf("path %s missing from swagger doc", path)
		}
	}
}
