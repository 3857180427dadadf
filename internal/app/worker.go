package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	config "github.com/DRSN-tech/photo-pipeline/internal/cfg"
	v1Grpc "github.com/DRSN-tech/photo-pipeline/internal/delivery/v1/grpc"
	"github.com/DRSN-tech/photo-pipeline/internal/delivery/v1/queue"
	"github.com/DRSN-tech/photo-pipeline/internal/infrastructure/classifier"
	"github.com/DRSN-tech/photo-pipeline/internal/infrastructure/kafka"
	"github.com/DRSN-tech/photo-pipeline/internal/infrastructure/reporter"
	"github.com/DRSN-tech/photo-pipeline/internal/infrastructure/thumbnail"
	"github.com/DRSN-tech/photo-pipeline/internal/repository/redis"
	redisConv "github.com/DRSN-tech/photo-pipeline/internal/repository/redis/converter"
	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
	"github.com/DRSN-tech/photo-pipeline/pkg/closer"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

// Worker — процесс классификации: читает очередь и обрабатывает фотографии по одной.
type Worker struct {
	cfg    *config.Config
	logger logger.Logger
}

func NewWorker(cfg *config.Config, logger logger.Logger) *Worker {
	return &Worker{cfg: cfg, logger: logger}
}

func (w *Worker) Run() error {
	logger := w.logger
	cl := closer.NewCloser(forcedTimeout)
	defer closeAll(logger, cl)

	if err := reporter.InitSentry(w.cfg.Sentry); err != nil {
		// без мониторинга работать можно
		logger.Warnf("sentry disabled: %v", err)
	}
	sentryReporter := reporter.NewSentryReporter()
	cl.AddSimple("sentry", func() error {
		sentryReporter.Flush()
		return nil
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cl.AddSimple("cleanup context", func() error {
		cleanupCancel()
		return nil
	})

	// 1. Хранилище
	st, err := initStorage(cleanupCtx, logger, w.cfg, cl)
	if err != nil {
		return err
	}

	// 2. Очередь
	producer := kafka.NewProducer(logger, w.cfg.Kafka)
	cl.AddSimple("kafka dead letter writer", producer.Close)
	if err := producer.EnsureTopics(topicTimeout, w.cfg.Kafka.Topic, w.cfg.Kafka.DeadLetterTopic); err != nil {
		logger.Errorf(err, "failed to ensure kafka topics")
		return err
	}

	consumer := kafka.NewConsumer(w.cfg.Kafka)
	cl.AddSimple("kafka reader", consumer.Close)

	attemptRepo := redis.NewAttemptRepo(st.redisClient, w.cfg.Redis)
	cacheRepo := redis.NewCacheRepo(st.redisClient, redisConv.NewPhotoInfoConverter(), w.cfg.Redis, logger)

	grpcSrv := v1Grpc.NewGRPCServer(w.cfg.Grpc, logger)
	grpcErrCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC health server starting on %s:%s", w.cfg.Grpc.NetworkMode, w.cfg.Grpc.Port)
		if err := grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()
	cl.Add("grpc server", grpcSrv.Stop)

	// 3. Прогрев модели
	model := classifier.NewONNXClassifier(w.cfg.Classifier, logger)
	cl.AddSimple("classifier", model.Close)

	warmupCtx, warmupCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer warmupCancel()
	if err := model.Warmup(warmupCtx); err != nil {
		logger.Errorf(err, "classifier warm-up failed")
		return err
	}

	metadataSource, err := usecase.NewMetadataSource(w.cfg.Worker.MetadataMode, st.blobStore, logger)
	if err != nil {
		logger.Errorf(err, "invalid thumbnail metadata mode")
		return err
	}
	logger.Infof("Thumbnail metadata mode: %s", metadataSource.Mode())
	if metadataSource.Mode() == config.MetadataModeTagMatch {
		logger.Warnf("Thumbnail metadata is copied from the first photo with equal tags; redelivered jobs may pick a different source")
	}

	classifyUC := usecase.NewClassificationUC(
		st.blobStore,
		model,
		thumbnail.NewGenerator(w.cfg.Thumbnail),
		metadataSource,
		cacheRepo,
		w.cfg.Classifier.Threshold,
		w.cfg.Worker.MaxPhotoSize,
		logger,
	)

	// 4. Готовность
	worker := queue.NewWorker(consumer, producer, attemptRepo, classifyUC, sentryReporter, w.cfg.Worker, logger)
	worker.Start(context.Background())
	cl.AddSimple("queue worker", func() error {
		worker.Stop()
		return nil
	})
	grpcSrv.SetServing(true)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-grpcErrCh:
		logger.Errorf(err, "gRPC server fatal error")
		return err
	case <-shutdown:
		logger.Infof("Received shutdown signal, stopping gracefully...")
		grpcSrv.SetServing(false)
		return nil
	}
}
