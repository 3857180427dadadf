package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const blobColumns = `namespace, id, business_id, caption, mime_type, tags, thumbnail_id, classified_at, size, created_at, updated_at`

// fieldColumns перечисляет колонки, по которым допустим поиск. Имя колонки никогда не берётся из запроса напрямую.
var fieldColumns = map[domain.MetadataField]string{
	domain.FieldBusinessID:  "business_id",
	domain.FieldCaption:     "caption",
	domain.FieldMimeType:    "mime_type",
	domain.FieldTags:        "tags",
	domain.FieldThumbnailID: "thumbnail_id",
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BlobMetadataRepo реализует хранение метаданных блобов поверх PostgreSQL.
type BlobMetadataRepo struct {
	pool *pgxpool.Pool
	conv converter.BlobConverter
}

func NewBlobMetadataRepo(pool *pgxpool.Pool, conv converter.BlobConverter) *BlobMetadataRepo {
	return &BlobMetadataRepo{
		pool: pool,
		conv: conv,
	}
}

// Create добавляет строку метаданных нового объекта.
func (b *BlobMetadataRepo) Create(ctx context.Context, blob *domain.Blob) (*domain.Blob, error) {
	model := b.conv.ToModel(blob)

	query := `
		INSERT INTO blob_metadata (namespace, id, business_id, caption, mime_type, tags, thumbnail_id, classified_at, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + blobColumns

	created, err := scanBlob(b.querier(ctx).QueryRow(ctx, query,
		model.Namespace, model.ID, model.BusinessID, model.Caption, model.MimeType,
		model.Tags, model.ThumbnailID, model.ClassifiedAt, model.Size,
	))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return b.conv.ToEntity(created), nil
}

// Upsert идемпотентно создаёт или полностью перезаписывает метаданные объекта.
// created_at при перезаписи сохраняется.
func (b *BlobMetadataRepo) Upsert(ctx context.Context, blob *domain.Blob) (*domain.Blob, error) {
	model := b.conv.ToModel(blob)

	query := `
		INSERT INTO blob_metadata (namespace, id, business_id, caption, mime_type, tags, thumbnail_id, classified_at, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (namespace, id)
		DO UPDATE SET
			business_id = EXCLUDED.business_id,
			caption = EXCLUDED.caption,
			mime_type = EXCLUDED.mime_type,
			tags = EXCLUDED.tags,
			thumbnail_id = EXCLUDED.thumbnail_id,
			classified_at = EXCLUDED.classified_at,
			size = EXCLUDED.size,
			updated_at = NOW()
		RETURNING ` + blobColumns

	upserted, err := scanBlob(b.querier(ctx).QueryRow(ctx, query,
		model.Namespace, model.ID, model.BusinessID, model.Caption, model.MimeType,
		model.Tags, model.ThumbnailID, model.ClassifiedAt, model.Size,
	))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return b.conv.ToEntity(upserted), nil
}

// Get возвращает метаданные объекта или e.ErrNotFound.
func (b *BlobMetadataRepo) Get(ctx context.Context, ns domain.Namespace, id string) (*domain.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blob_metadata WHERE namespace = $1 AND id = $2`

	model, err := scanBlob(b.querier(ctx).QueryRow(ctx, query, string(ns), id))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return b.conv.ToEntity(model), nil
}

// Update применяет патч в транзакции: строка блокируется на время чтения и записи,
// поэтому параллельные обновления разных полей не теряют друг друга.
func (b *BlobMetadataRepo) Update(ctx context.Context, ns domain.Namespace, id string, patch domain.MetadataPatch) (res *domain.Blob, err error) {
	const op = "BlobMetadataRepo.Update"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, b.pool)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
	}()
	ctx = tr.WithTx(ctx, tx.Transaction())

	q := b.querier(ctx)

	current, err := scanBlob(q.QueryRow(ctx,
		`SELECT `+blobColumns+` FROM blob_metadata WHERE namespace = $1 AND id = $2 FOR UPDATE`, string(ns), id))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	merged := b.conv.ToEntity(current)
	merged.Metadata = merged.Metadata.Merge(patch)
	model := b.conv.ToModel(merged)

	query := `
		UPDATE blob_metadata SET
			business_id = $3,
			caption = $4,
			mime_type = $5,
			tags = $6,
			thumbnail_id = $7,
			classified_at = $8,
			updated_at = NOW()
		WHERE namespace = $1 AND id = $2
		RETURNING ` + blobColumns

	updated, err := scanBlob(q.QueryRow(ctx, query,
		model.Namespace, model.ID, model.BusinessID, model.Caption, model.MimeType,
		model.Tags, model.ThumbnailID, model.ClassifiedAt,
	))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, e.Wrap(op, err)
	}

	return b.conv.ToEntity(updated), nil
}

// FindByField возвращает объекты с точным совпадением поля в порядке загрузки.
// Для тегов сравнивается весь список целиком с учётом порядка, а неклассифицированные объекты не участвуют.
func (b *BlobMetadataRepo) FindByField(ctx context.Context, ns domain.Namespace, field domain.MetadataField, value any) ([]domain.Blob, error) {
	cond, arg, err := fieldFilter(field, value)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := fmt.Sprintf(`SELECT %s FROM blob_metadata WHERE namespace = $1 AND %s ORDER BY created_at, id`, blobColumns, cond)

	rows, err := b.querier(ctx).Query(ctx, query, string(ns), arg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	models := make([]converter.BlobMetadataModel, 0)
	for rows.Next() {
		model, err := scanBlob(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		models = append(models, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return b.conv.ToArrEntity(models), nil
}

// querier возвращает транзакцию из контекста, если она есть, иначе пул.
func (b *BlobMetadataRepo) querier(ctx context.Context) querier {
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		return tx
	}

	return b.pool
}

// fieldFilter проверяет поле, приводит значение к типу колонки и собирает условие для параметра $2.
// У ещё не классифицированной фотографии пустой список тегов, поэтому такие строки исключаются.
func fieldFilter(field domain.MetadataField, value any) (string, any, error) {
	column, ok := fieldColumns[field]
	if !ok {
		return "", nil, e.Wrap(string(field), e.ErrUnknownMetadataField)
	}

	if field == domain.FieldTags {
		tags, ok := value.([]string)
		if !ok {
			return "", nil, fmt.Errorf("%w: %s expects []string, got %T", e.ErrInvalidFieldValue, field, value)
		}
		if tags == nil {
			tags = []string{}
		}
		return column + " = $2 AND classified_at IS NOT NULL", tags, nil
	}

	s, ok := value.(string)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s expects string, got %T", e.ErrInvalidFieldValue, field, value)
	}

	return column + " = $2", s, nil
}

func scanBlob(row pgx.Row) (*converter.BlobMetadataModel, error) {
	var model converter.BlobMetadataModel
	err := row.Scan(
		&model.Namespace, &model.ID, &model.BusinessID, &model.Caption, &model.MimeType,
		&model.Tags, &model.ThumbnailID, &model.ClassifiedAt, &model.Size,
		&model.CreatedAt, &model.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &model, nil
}
