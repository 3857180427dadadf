package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

// Режимы выбора метаданных для миниатюры.
const (
	MetadataModeTagMatch = domain.MetadataModeTagMatch
	MetadataModeSource   = domain.MetadataModeSource
)

type Config struct {
	Minio      *MinIOCfg
	Http       *HTTPConfig
	Grpc       *GRPCConfig
	Db         *PGDBCfg
	Redis      *RedisCfg
	Kafka      *KafkaCfg
	Worker     *WorkerCfg
	Classifier *ClassifierCfg
	Thumbnail  *ThumbnailCfg
	Upload     *UploadCfg
	Sentry     *SentryCfg
}

type KafkaCfg struct {
	Topic             string
	DeadLetterTopic   string
	GroupID           string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	MaxWait           time.Duration
	WriteTimeout      time.Duration
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	OriginalsBucket   string // Бакет для оригиналов фотографий
	ThumbnailsBucket  string // Бакет для миниатюр
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	PhotoTTL    time.Duration // TTL кэша карточки фотографии
	AttemptsTTL time.Duration // TTL счётчика попыток доставки задачи
}

// WorkerCfg — параметры обработчика очереди классификации.
type WorkerCfg struct {
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	Prefetch     int // размер буфера между чтением из очереди и обработкой
	JobTimeout   time.Duration
	MaxPhotoSize int64
	MetadataMode string
}

type ClassifierCfg struct {
	SharedLibraryPath string
	ModelPath         string
	LabelsPath        string
	InputName         string
	OutputName        string
	InputSize         int
	NumClasses        int
	TopK              int
	Threshold         decimal.Decimal
}

type ThumbnailCfg struct {
	Width       int
	Height      int
	JPEGQuality int
}

type UploadCfg struct {
	MaxFileSize     int64
	MaxMemory       int64
	MaxConcurrent   int
	CleanupAttempts int
}

type SentryCfg struct {
	DSN         string
	Environment string
	Release     string
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	worker, err := loadWorkerCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	classifier, err := loadClassifierCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	thumbnail, err := loadThumbnailCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	upload, err := loadUploadCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:      minio,
		Http:       http,
		Grpc:       loadGRPCConfig(),
		Db:         db,
		Redis:      redis,
		Kafka:      kafka,
		Worker:     worker,
		Classifier: classifier,
		Thumbnail:  thumbnail,
		Upload:     upload,
		Sentry:     loadSentryCfg(),
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultGroupID           = "photo-classifier"
		defaultMaxWait           = 500 * time.Millisecond
		defaultWriteTimeout      = 10 * time.Second
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	brokers := strings.Split(brokerStr, ",")

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	maxWait, err := parseDurationEnv("KAFKA_MAX_WAIT", defaultMaxWait)
	if err != nil {
		return nil, e.Wrap("KAFKA_MAX_WAIT", err)
	}

	writeTimeout, err := parseDurationEnv("KAFKA_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		return nil, e.Wrap("KAFKA_WRITE_TIMEOUT", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             topic,
		DeadLetterTopic:   getEnvOrDefault("KAFKA_DEAD_LETTER_TOPIC", topic+".dlq"),
		GroupID:           getEnvOrDefault("KAFKA_GROUP_ID", defaultGroupID),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		MaxWait:           maxWait,
		WriteTimeout:      writeTimeout,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL           = false
		defaultEndpoint         = "minio:9000"
		defaultOriginalsBucket  = "originals"
		defaultThumbnailsBucket = "thumbnails"
	)

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", defaultUseSSL)
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	originals := getEnvOrDefault("MINIO_ORIGINALS_BUCKET", defaultOriginalsBucket)
	thumbnails := getEnvOrDefault("MINIO_THUMBNAILS_BUCKET", defaultThumbnailsBucket)
	if originals == thumbnails {
		err := fmt.Errorf("MINIO_ORIGINALS_BUCKET and MINIO_THUMBNAILS_BUCKET must differ")
		log.Errorf(err, "invalid minio buckets")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		OriginalsBucket:   originals,
		ThumbnailsBucket:  thumbnails,
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 30 * time.Second
		defaultWriteTimeout = 60 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultPhotoTTL     = 3 * time.Minute
		defaultAttemptsTTL  = 24 * time.Hour
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	photoTTL, err := parseDurationEnv("REDIS_PHOTO_TTL", defaultPhotoTTL)
	if err != nil {
		log.Errorf(err, "invalid REDIS_PHOTO_TTL")
		return nil, err
	}

	attemptsTTL, err := parseDurationEnv("REDIS_ATTEMPTS_TTL", defaultAttemptsTTL)
	if err != nil {
		log.Errorf(err, "invalid REDIS_ATTEMPTS_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     max(readTimeout, writeTimeout),
		PhotoTTL:    photoTTL,
		AttemptsTTL: attemptsTTL,
	}, nil
}

func loadWorkerCfg(log logger.Logger) (*WorkerCfg, error) {
	const (
		defaultMaxAttempts  = 5
		defaultBackoffBase  = time.Second
		defaultBackoffMax   = 30 * time.Second
		defaultPrefetch     = 1
		defaultJobTimeout   = 2 * time.Minute
		defaultMaxPhotoSize = 15 << 20
	)

	maxAttempts, err := parseIntEnv("WORKER_MAX_ATTEMPTS", defaultMaxAttempts)
	if err != nil || maxAttempts < 1 {
		err = e.Wrap("WORKER_MAX_ATTEMPTS", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid WORKER_MAX_ATTEMPTS")
		return nil, err
	}

	backoffBase, err := parseDurationEnv("WORKER_BACKOFF_BASE", defaultBackoffBase)
	if err != nil {
		log.Errorf(err, "invalid WORKER_BACKOFF_BASE")
		return nil, err
	}

	backoffMax, err := parseDurationEnv("WORKER_BACKOFF_MAX", defaultBackoffMax)
	if err != nil {
		log.Errorf(err, "invalid WORKER_BACKOFF_MAX")
		return nil, err
	}

	prefetch, err := parseIntEnv("WORKER_PREFETCH", defaultPrefetch)
	if err != nil || prefetch < 1 {
		err = e.Wrap("WORKER_PREFETCH", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid WORKER_PREFETCH")
		return nil, err
	}

	jobTimeout, err := parseDurationEnv("WORKER_JOB_TIMEOUT", defaultJobTimeout)
	if err != nil {
		log.Errorf(err, "invalid WORKER_JOB_TIMEOUT")
		return nil, err
	}

	maxPhotoSize, err := parseIntEnv("WORKER_MAX_PHOTO_SIZE", defaultMaxPhotoSize)
	if err != nil {
		log.Errorf(err, "invalid WORKER_MAX_PHOTO_SIZE")
		return nil, err
	}

	mode, err := ParseMetadataMode(getEnvOrDefault("THUMBNAIL_METADATA_MODE", MetadataModeTagMatch))
	if err != nil {
		log.Errorf(err, "invalid THUMBNAIL_METADATA_MODE")
		return nil, err
	}

	return &WorkerCfg{
		MaxAttempts:  maxAttempts,
		BackoffBase:  backoffBase,
		BackoffMax:   backoffMax,
		Prefetch:     prefetch,
		JobTimeout:   jobTimeout,
		MaxPhotoSize: int64(maxPhotoSize),
		MetadataMode: mode,
	}, nil
}

func loadClassifierCfg(log logger.Logger) (*ClassifierCfg, error) {
	const (
		defaultLibraryPath = "./model/libonnxruntime.so"
		defaultModelPath   = "./model/mobilenetv2.onnx"
		defaultLabelsPath  = "./model/imagenet_labels.txt"
		defaultInputName   = "input"
		defaultOutputName  = "output"
		defaultInputSize   = 224
		defaultNumClasses  = 1000
		defaultTopK        = 3
		defaultThreshold   = "0.5"
	)

	inputSize, err := parseIntEnv("CLASSIFIER_INPUT_SIZE", defaultInputSize)
	if err != nil {
		log.Errorf(err, "invalid CLASSIFIER_INPUT_SIZE")
		return nil, err
	}

	numClasses, err := parseIntEnv("CLASSIFIER_NUM_CLASSES", defaultNumClasses)
	if err != nil {
		log.Errorf(err, "invalid CLASSIFIER_NUM_CLASSES")
		return nil, err
	}

	topK, err := parseIntEnv("CLASSIFIER_TOP_K", defaultTopK)
	if err != nil {
		log.Errorf(err, "invalid CLASSIFIER_TOP_K")
		return nil, err
	}

	threshold, err := ParseThreshold(getEnvOrDefault("CLASSIFIER_THRESHOLD", defaultThreshold))
	if err != nil {
		log.Errorf(err, "invalid CLASSIFIER_THRESHOLD")
		return nil, err
	}

	return &ClassifierCfg{
		SharedLibraryPath: getEnvOrDefault("ONNXRUNTIME_LIB", defaultLibraryPath),
		ModelPath:         getEnvOrDefault("CLASSIFIER_MODEL_PATH", defaultModelPath),
		LabelsPath:        getEnvOrDefault("CLASSIFIER_LABELS_PATH", defaultLabelsPath),
		InputName:         getEnvOrDefault("CLASSIFIER_INPUT_NAME", defaultInputName),
		OutputName:        getEnvOrDefault("CLASSIFIER_OUTPUT_NAME", defaultOutputName),
		InputSize:         inputSize,
		NumClasses:        numClasses,
		TopK:              topK,
		Threshold:         threshold,
	}, nil
}

func loadThumbnailCfg() (*ThumbnailCfg, error) {
	const (
		defaultSize    = 100
		defaultQuality = 85
	)

	quality, err := parseIntEnv("THUMBNAIL_JPEG_QUALITY", defaultQuality)
	if err != nil || quality < 1 || quality > 100 {
		return nil, e.Wrap("THUMBNAIL_JPEG_QUALITY", e.ErrIncorrectEnvVariable)
	}

	return &ThumbnailCfg{
		Width:       defaultSize,
		Height:      defaultSize,
		JPEGQuality: quality,
	}, nil
}

func loadUploadCfg() (*UploadCfg, error) {
	const (
		defaultMaxFileSize     = 15 << 20
		defaultMaxMemory       = 8 << 20
		defaultMaxConcurrent   = 16
		defaultCleanupAttempts = 3
	)

	maxFileSize, err := parseIntEnv("UPLOAD_MAX_FILE_SIZE", defaultMaxFileSize)
	if err != nil {
		return nil, e.Wrap("UPLOAD_MAX_FILE_SIZE", err)
	}

	maxMemory, err := parseIntEnv("UPLOAD_MAX_MEMORY", defaultMaxMemory)
	if err != nil {
		return nil, e.Wrap("UPLOAD_MAX_MEMORY", err)
	}

	maxConcurrent, err := parseIntEnv("UPLOAD_CONCURRENCY", defaultMaxConcurrent)
	if err != nil || maxConcurrent < 1 {
		return nil, e.Wrap("UPLOAD_CONCURRENCY", e.ErrIncorrectEnvVariable)
	}

	return &UploadCfg{
		MaxFileSize:     int64(maxFileSize),
		MaxMemory:       int64(maxMemory),
		MaxConcurrent:   maxConcurrent,
		CleanupAttempts: defaultCleanupAttempts,
	}, nil
}

func loadSentryCfg() *SentryCfg {
	return &SentryCfg{
		DSN:         getEnv("SENTRY_DSN"),
		Environment: getEnvOrDefault("SENTRY_ENVIRONMENT", "development"),
		Release:     getEnvOrDefault("SENTRY_RELEASE", "photo-pipeline@dev"),
	}
}

// ParseThreshold разбирает порог уверенности классификатора. Допустимы значения строго между 0 и 1.
func ParseThreshold(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, e.Wrap(s, e.ErrInvalidThreshold)
	}

	if !d.GreaterThan(decimal.Zero) || !d.LessThan(decimal.NewFromInt(1)) {
		return decimal.Zero, e.Wrap(s, e.ErrInvalidThreshold)
	}

	return d, nil
}

// ParseMetadataMode проверяет режим выбора метаданных миниатюры.
func ParseMetadataMode(s string) (string, error) {
	switch s {
	case MetadataModeTagMatch, MetadataModeSource:
		return s, nil
	default:
		return "", e.Wrap(s, e.ErrUnknownMetadataMode)
	}
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	return strconv.ParseBool(v)
}
