package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	config "github.com/DRSN-tech/photo-pipeline/internal/cfg"
	v1Http "github.com/DRSN-tech/photo-pipeline/internal/delivery/v1/http"
	"github.com/DRSN-tech/photo-pipeline/internal/infrastructure/kafka"
	"github.com/DRSN-tech/photo-pipeline/internal/repository/redis"
	redisConv "github.com/DRSN-tech/photo-pipeline/internal/repository/redis/converter"
	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
	"github.com/DRSN-tech/photo-pipeline/pkg/closer"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// API — процесс приёма загрузок и чтения фотографий.
type API struct {
	cfg    *config.Config
	logger logger.Logger
}

func NewAPI(cfg *config.Config, logger logger.Logger) *API {
	return &API{cfg: cfg, logger: logger}
}

func (a *API) Run() error {
	logger := a.logger
	cl := closer.NewCloser(forcedTimeout)
	defer closeAll(logger, cl)

	// Фоновая очистка прерывается только после ожидания WaitForCleanup
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cl.AddSimple("cleanup context", func() error {
		cleanupCancel()
		return nil
	})

	st, err := initStorage(cleanupCtx, logger, a.cfg, cl)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(logger, a.cfg.Kafka)
	cl.AddSimple("kafka producer", producer.Close)
	if err := producer.EnsureTopics(topicTimeout, a.cfg.Kafka.Topic, a.cfg.Kafka.DeadLetterTopic); err != nil {
		logger.Errorf(err, "failed to ensure kafka topics")
		return err
	}

	cacheRepo := redis.NewCacheRepo(st.redisClient, redisConv.NewPhotoInfoConverter(), a.cfg.Redis, logger)
	photoUC := usecase.NewPhotoUC(st.blobStore, producer, cacheRepo, logger, a.cfg.Upload.MaxConcurrent)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, logger)
	router.Init(photoUC, a.cfg.Upload,
		v1Http.HealthCheck{Name: "postgres", Check: st.db.Pool.Ping},
		v1Http.HealthCheck{Name: "redis", Check: st.redisClient.Ping},
	)

	httpSrv := v1Http.NewServer(r, a.cfg.Http)
	cl.Add("http server", httpSrv.Stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Errorf(err, "HTTP server fatal error")
		return err
	case <-shutdown:
		logger.Infof("Received shutdown signal, stopping gracefully...")
		return nil
	}
}
