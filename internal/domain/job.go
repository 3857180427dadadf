package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/photo-pipeline/pkg/e"
)

// Job — доставка задачи из очереди. Полезная нагрузка состоит только из идентификатора фотографии,
// остальные поля описывают позицию сообщения для подтверждения.
type Job struct {
	PhotoID   string
	Topic     string
	Partition int
	Offset    int64
}

func NewJob(photoID, topic string, partition int, offset int64) *Job {
	return &Job{
		PhotoID:   photoID,
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
	}
}

// DeliveryKey однозначно определяет доставку (а не фотографию): одна и та же фотография
// может быть поставлена в очередь несколько раз.
func (j *Job) DeliveryKey() string {
	return fmt.Sprintf("%s:%d:%d", j.Topic, j.Partition, j.Offset)
}

// Stage — шаг обработки задачи, на котором произошла ошибка.
type Stage string

const (
	StageDownload       Stage = "download"
	StageClassify       Stage = "classify"
	StageFilter         Stage = "filter"
	StageTag            Stage = "tag"
	StageLookup         Stage = "lookup"
	StageThumbnail      Stage = "thumbnail"
	StageStoreThumbnail Stage = "store-thumbnail"
	StageLinkThumbnail  Stage = "link-thumbnail"
	StageAck            Stage = "ack"
	StageUnknown        Stage = "unknown"
)

// StageError привязывает ошибку к шагу конвейера.
type StageError struct {
	Stage Stage
	Err   error
}

func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (s *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", s.Stage, s.Err)
}

func (s *StageError) Unwrap() error {
	return s.Err
}

// StageOf возвращает шаг, на котором произошла ошибка, или StageUnknown.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageUnknown
}

// IsPermanent сообщает, что повтор задачи с такой ошибкой не поможет.
func IsPermanent(err error) bool {
	return errors.Is(err, e.ErrNotFound) ||
		errors.Is(err, e.ErrCorruptImage) ||
		errors.Is(err, e.ErrEmptyJobToken) ||
		errors.Is(err, e.ErrPhotoTooLarge)
}

// DeadLetter — запись о задаче, снятой с обработки.
type DeadLetter struct {
	PhotoID  string    `json:"photoId"`
	Stage    Stage     `json:"stage"`
	Error    string    `json:"error"`
	Attempts int       `json:"attempts"`
	Source   string    `json:"source"`
	FailedAt time.Time `json:"failedAt"`
}

func NewDeadLetter(job *Job, err error, attempts int, failedAt time.Time) *DeadLetter {
	return &DeadLetter{
		PhotoID:  job.PhotoID,
		Stage:    StageOf(err),
		Error:    err.Error(),
		Attempts: attempts,
		Source:   job.DeliveryKey(),
		FailedAt: failedAt,
	}
}
