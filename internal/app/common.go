package app

import (
	"context"
	"time"

	config "github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/infrastructure/blobstore"
	s3Repo "github.com/DRSN-tech/photo-pipeline/internal/repository/minio"
	"github.com/DRSN-tech/photo-pipeline/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/photo-pipeline/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/photo-pipeline/pkg/clients"
	"github.com/DRSN-tech/photo-pipeline/pkg/closer"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/DRSN-tech/photo-pipeline/pkg/postgres"
	"github.com/jimlawless/whereami"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
	forcedTimeout   = 3 * time.Second
	topicTimeout    = 10 * time.Second
)

// storage — общие для обоих процессов хранилища.
type storage struct {
	db          *postgres.PgDatabase
	blobStore   *blobstore.BlobStore
	redisClient *clients.RedisClient
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

// initStorage подключает Postgres, MinIO и Redis и собирает BlobStore.
// Каждый открытый ресурс сразу регистрируется в closer.
// cleanupCtx отменяется при остановке и прерывает фоновую очистку объектов.
func initStorage(cleanupCtx context.Context, logger logger.Logger, cfg *config.Config, cl *closer.Closer) (*storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := initPGDB(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	cl.AddSimple("postgres", func() error {
		db.Close()
		return nil
	})

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		logger.Errorf(err, "failed to initialize minio client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := clients.EnsureBuckets(ctx, minioClient, cfg.Minio.OriginalsBucket, cfg.Minio.ThumbnailsBucket); err != nil {
		logger.Errorf(err, "failed to initialize MinIO buckets")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	objectRepo := s3Repo.NewObjectRepo(minioClient, cfg.Minio)
	metadataRepo := pgdb.NewBlobMetadataRepo(db.Pool, pgdbConv.NewBlobConverter())
	blobStore := blobstore.NewBlobStore(objectRepo, metadataRepo, cfg.Upload.CleanupAttempts, logger, cleanupCtx)
	cl.Add("blob store cleanup", blobStore.WaitForCleanup)

	redisClient := clients.NewRedisClient(cfg.Redis)
	if err := redisClient.Ping(ctx); err != nil {
		redisClient.Close()
		logger.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.AddSimple("redis", redisClient.Close)

	return &storage{
		db:          db,
		blobStore:   blobStore,
		redisClient: redisClient,
	}, nil
}

// closeAll закрывает ресурсы с общим таймаутом завершения.
func closeAll(logger logger.Logger, cl *closer.Closer) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := cl.Close(ctx); err != nil {
		logger.Errorf(err, "shutdown finished with errors")
		return
	}

	logger.Infof("Application shutdown complete")
}
