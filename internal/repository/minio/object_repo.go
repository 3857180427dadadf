package minio

import (
	"context"
	"io"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const errCodeNoSuchKey = "NoSuchKey"

// ObjectRepo реализует хранение байтов объектов поверх MinIO: отдельный бакет на каждое пространство имён,
// ключ объекта совпадает с его идентификатором.
type ObjectRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewObjectRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ObjectRepo {
	return &ObjectRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Put загружает объект, перезаписывая существующий с тем же ключом.
func (o *ObjectRepo) Put(ctx context.Context, ns domain.Namespace, id string, r io.Reader, size int64, contentType string) error {
	obj, err := o.object(ns, id, size, contentType)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := o.mc.PutObject(ctx, obj.Bucket, obj.Key, r, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Get открывает объект на чтение. Отсутствующий объект даёт e.ErrNotFound.
func (o *ObjectRepo) Get(ctx context.Context, ns domain.Namespace, id string) (io.ReadCloser, error) {
	obj, err := o.object(ns, id, -1, "")
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	res, err := o.mc.GetObject(ctx, obj.Bucket, obj.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), mapErr(err))
	}

	// GetObject ленивый: ошибка отсутствия объекта видна только после первого запроса
	if _, err := res.Stat(); err != nil {
		_ = res.Close()
		return nil, e.Wrap(whereami.WhereAmI(), mapErr(err))
	}

	return res, nil
}

// Delete удаляет объект из MinIO по указанному ключу.
func (o *ObjectRepo) Delete(ctx context.Context, ns domain.Namespace, id string) error {
	obj, err := o.object(ns, id, 0, "")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := o.mc.RemoveObject(ctx, obj.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (o *ObjectRepo) object(ns domain.Namespace, id string, size int64, contentType string) (*domain.Object, error) {
	bucket, err := BucketFor(o.cfg, ns)
	if err != nil {
		return nil, err
	}

	return domain.NewObject(bucket, id, size, contentType), nil
}

// BucketFor возвращает бакет пространства имён.
func BucketFor(cfg *cfg.MinIOCfg, ns domain.Namespace) (string, error) {
	switch ns {
	case domain.NamespaceOriginals:
		return cfg.OriginalsBucket, nil
	case domain.NamespaceThumbnails:
		return cfg.ThumbnailsBucket, nil
	default:
		return "", e.Wrap(string(ns), e.ErrUnknownNamespace)
	}
}

func mapErr(err error) error {
	if minio.ToErrorResponse(err).Code == errCodeNoSuchKey {
		return e.ErrNotFound
	}
	return err
}
