package cfg

import (
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "photos")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "photos")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("KAFKA_TOPIC", "photo-jobs")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := Load(logger.Nop{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := len(c.Kafka.Brokers); got != 2 {
		t.Fatalf("brokers = %d, want 2", got)
	}
	if c.Kafka.DeadLetterTopic != "photo-jobs.dlq" {
		t.Fatalf("dead letter topic = %q", c.Kafka.DeadLetterTopic)
	}
	if c.Minio.OriginalsBucket != "originals" || c.Minio.ThumbnailsBucket != "thumbnails" {
		t.Fatalf("buckets = %q/%q", c.Minio.OriginalsBucket, c.Minio.ThumbnailsBucket)
	}
	if c.Worker.MetadataMode != MetadataModeTagMatch {
		t.Fatalf("metadata mode = %q", c.Worker.MetadataMode)
	}
	if c.Worker.MaxAttempts != 5 || c.Worker.Prefetch != 1 {
		t.Fatalf("worker cfg = %+v", c.Worker)
	}
	if c.Classifier.Threshold.String() != "0.5" {
		t.Fatalf("threshold = %s", c.Classifier.Threshold)
	}
	if c.Thumbnail.Width != 100 || c.Thumbnail.Height != 100 {
		t.Fatalf("thumbnail size = %dx%d", c.Thumbnail.Width, c.Thumbnail.Height)
	}
	if c.Redis.Timeout != 3*time.Second {
		t.Fatalf("redis timeout = %v", c.Redis.Timeout)
	}
}

func TestLoadMissingKafkaTopic(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_TOPIC", "")

	if _, err := Load(logger.Nop{}); err == nil {
		t.Fatal("expected error for missing KAFKA_TOPIC")
	}
}

func TestLoadRejectsSameBuckets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MINIO_ORIGINALS_BUCKET", "photos")
	t.Setenv("MINIO_THUMBNAILS_BUCKET", "photos")

	if _, err := Load(logger.Nop{}); err == nil {
		t.Fatal("expected error when both namespaces share one bucket")
	}
}

func TestLoadRejectsInvalidMaxAttempts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKER_MAX_ATTEMPTS", "0")

	if _, err := Load(logger.Nop{}); !errors.Is(err, e.ErrIncorrectEnvVariable) {
		t.Fatalf("expected ErrIncorrectEnvVariable, got %v", err)
	}
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "0.5"},
		{in: " 0.75 "},
		{in: "0.0001"},
		{in: "0", wantErr: true},
		{in: "1", wantErr: true},
		{in: "-0.2", wantErr: true},
		{in: "half", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseThreshold(tt.in)
			if tt.wantErr != (err != nil) {
				t.Fatalf("ParseThreshold(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, e.ErrInvalidThreshold) {
				t.Fatalf("expected ErrInvalidThreshold, got %v", err)
			}
		})
	}
}

func TestParseMetadataMode(t *testing.T) {
	for _, mode := range []string{MetadataModeSource, MetadataModeTagMatch} {
		if got, err := ParseMetadataMode(mode); err != nil || got != mode {
			t.Fatalf("ParseMetadataMode(%q) = %q, %v", mode, got, err)
		}
	}

	if _, err := ParseMetadataMode("first-match"); !errors.Is(err, e.ErrUnknownMetadataMode) {
		t.Fatalf("expected ErrUnknownMetadataMode, got %v", err)
	}
}
