package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DRSN-tech/photo-pipeline/pkg/e"
)

func TestStageOf(t *testing.T) {
	err := fmt.Errorf("ClassificationUseCase.ProcessJob: %w", NewStageError(StageThumbnail, e.ErrCorruptImage))

	if got := StageOf(err); got != StageThumbnail {
		t.Fatalf("StageOf = %q, want %q", got, StageThumbnail)
	}
	if got := StageOf(errors.New("plain")); got != StageUnknown {
		t.Fatalf("StageOf(plain) = %q", got)
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewStageError(StageDownload, e.ErrNotFound), true},
		{NewStageError(StageClassify, e.ErrCorruptImage), true},
		{e.ErrEmptyJobToken, true},
		{NewStageError(StageTag, errors.New("connection refused")), false},
	}

	for _, tt := range tests {
		if got := IsPermanent(tt.err); got != tt.want {
			t.Fatalf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewDeadLetter(t *testing.T) {
	job := NewJob("P1", "photo-jobs", 2, 41)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	dl := NewDeadLetter(job, NewStageError(StageClassify, e.ErrCorruptImage), 1, at)

	if dl.PhotoID != "P1" || dl.Stage != StageClassify || dl.Attempts != 1 {
		t.Fatalf("unexpected dead letter: %+v", dl)
	}
	if dl.Source != "photo-jobs:2:41" {
		t.Fatalf("source = %q", dl.Source)
	}
}
