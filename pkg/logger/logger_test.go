package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestSlogLoggerErrorfAddsErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLoggerWithWriter(&buf, "info")

	log.Errorf(errors.New("boom"), "job failed photo_id=%s", "p1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if rec["msg"] != "job failed photo_id=p1" {
		t.Fatalf("msg = %v", rec["msg"])
	}
	if rec["error"] != "boom" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec["level"] != "ERROR" {
		t.Fatalf("level = %v", rec["level"])
	}
}

func TestSlogLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLoggerWithWriter(&buf, "warn")

	log.Infof("hidden")
	log.Debugf("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	log.Warnf("shown %d", 1)
	if !bytes.Contains(buf.Bytes(), []byte("shown 1")) {
		t.Fatalf("expected warn record, got %q", buf.String())
	}
}
