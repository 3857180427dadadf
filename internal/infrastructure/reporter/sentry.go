package reporter

import (
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// SentryReporter отправляет ошибки в Sentry. Без DSN клиент Sentry ничего не отправляет.
type SentryReporter struct {
	hub *sentry.Hub
}

// InitSentry настраивает глобальный клиент Sentry.
func InitSentry(cfg *cfg.SentryCfg) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
}

func NewSentryReporter() *SentryReporter {
	return &SentryReporter{hub: sentry.CurrentHub()}
}

// Report отправляет ошибку с тегами (например photo_id и stage).
func (s *SentryReporter) Report(err error, tags map[string]string) {
	if err == nil {
		return
	}

	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

// Flush дожидается отправки накопленных событий.
func (s *SentryReporter) Flush() bool {
	return s.hub.Flush(flushTimeout)
}
