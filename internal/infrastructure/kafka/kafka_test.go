package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/segmentio/kafka-go"
)

func TestJobWireFormatIsRawID(t *testing.T) {
	msg := jobMessage("photo-jobs", "5f0c7a1e-3d43-4a8e-9f7b-0c0d2a6f1b11")
	if string(msg.Value) != "5f0c7a1e-3d43-4a8e-9f7b-0c0d2a6f1b11" {
		t.Fatalf("value = %q", msg.Value)
	}
	if msg.Topic != "photo-jobs" {
		t.Fatalf("topic = %q", msg.Topic)
	}

	job := jobFromMessage(kafka.Message{Topic: "photo-jobs", Partition: 2, Offset: 17, Value: msg.Value})
	if job.PhotoID != "5f0c7a1e-3d43-4a8e-9f7b-0c0d2a6f1b11" || job.Partition != 2 || job.Offset != 17 {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestDeadLetterMessage(t *testing.T) {
	job := domain.NewJob("P1", "photo-jobs", 0, 3)
	err := domain.NewStageError(domain.StageClassify, errors.New("boom"))
	dl := domain.NewDeadLetter(job, err, 5, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	msg, mErr := deadLetterMessage("photo-jobs.dlq", dl)
	if mErr != nil {
		t.Fatalf("deadLetterMessage: %v", mErr)
	}
	if msg.Topic != "photo-jobs.dlq" || string(msg.Key) != "P1" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	var decoded domain.DeadLetter
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Stage != domain.StageClassify || decoded.Attempts != 5 || decoded.Source != "photo-jobs:0:3" {
		t.Fatalf("unexpected dead letter: %+v", decoded)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: errors.New("dial tcp 10.0.0.1:9092: connect: connection refused"), want: true},
		{err: errors.New("[5] Leader Not Available: the cluster is in the middle of a leadership election"), want: true},
		{err: errors.New("[10] Message Size Too Large"), want: false},
	}

	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Fatalf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
