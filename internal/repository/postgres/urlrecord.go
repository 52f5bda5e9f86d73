package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	"github.com/utafrali/catalogimporter/pkg/database"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

const (
	selectUrlRecordSQL = `SELECT id, entity_id, entity_name, slug, is_active, language_id FROM url_records`

	insertUrlRecordSQL = `
		INSERT INTO url_records (entity_id, entity_name, slug, is_active, language_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	updateUrlRecordSQL = `
		UPDATE url_records
		SET entity_id = $1, entity_name = $2, slug = $3, is_active = $4, language_id = $5
		WHERE id = $6`
)

// UrlRecordRepository implements repository.UrlRecordRepository using PostgreSQL.
type UrlRecordRepository struct {
	db database.DBTX
}

var _ repository.UrlRecordRepository = (*UrlRecordRepository)(nil)

// NewUrlRecordRepository creates a new PostgreSQL-backed url record repository.
func NewUrlRecordRepository(db database.DBTX) *UrlRecordRepository {
	return &UrlRecordRepository{db: db}
}

// GetBySlug retrieves the record owning slug, regardless of whether it is active.
func (r *UrlRecordRepository) GetBySlug(ctx context.Context, slug string) (rec *domain.UrlRecord, err error) {
	query := selectUrlRecordSQL + " WHERE slug = $1"
	ctx, end := database.TraceQuery(ctx, "GetUrlRecordBySlug", query)
	defer func() { end(err) }()

	rec = &domain.UrlRecord{}
	err = r.db.QueryRow(ctx, query, slug).Scan(
		&rec.ID, &rec.EntityID, &rec.EntityName, &rec.Slug, &rec.IsActive, &rec.LanguageID,
	)
	if err != nil {
		return nil, notFound(err, "get url record")
	}
	return rec, nil
}

// ListByEntity returns all records of an entity in a language, newest first.
func (r *UrlRecordRepository) ListByEntity(ctx context.Context, entityID int64, entityName string, languageID int) (out []domain.UrlRecord, err error) {
	query := selectUrlRecordSQL + " WHERE entity_id = $1 AND entity_name = $2 AND language_id = $3 ORDER BY id DESC"
	ctx, end := database.TraceQuery(ctx, "ListUrlRecordsByEntity", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, entityID, entityName, languageID)
	if err != nil {
		return nil, fmt.Errorf("list url records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.UrlRecord
		if err := rows.Scan(&rec.ID, &rec.EntityID, &rec.EntityName, &rec.Slug, &rec.IsActive, &rec.LanguageID); err != nil {
			return nil, fmt.Errorf("scan url record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate url records: %w", err)
	}
	return out, nil
}

// BeginBatch opens a transaction for url record writes.
func (r *UrlRecordRepository) BeginBatch(ctx context.Context) (repository.UrlRecordBatch, error) {
	b, err := database.BeginBatch(ctx, r.db)
	if err != nil {
		return nil, err
	}
	return &urlRecordBatch{Batch: b}, nil
}

type urlRecordBatch struct {
	*database.Batch
}

func (b *urlRecordBatch) Insert(ctx context.Context, rec *domain.UrlRecord) error {
	return b.Stage(ctx, func(q pgx.Tx) error {
		err := q.QueryRow(ctx, insertUrlRecordSQL,
			rec.EntityID, rec.EntityName, rec.Slug, rec.IsActive, rec.LanguageID,
		).Scan(&rec.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.AlreadyExists("url record", "slug", rec.Slug)
			}
			return fmt.Errorf("insert url record: %w", err)
		}
		return nil
	})
}

func (b *urlRecordBatch) Update(ctx context.Context, rec *domain.UrlRecord) error {
	return b.Stage(ctx, func(q pgx.Tx) error {
		tag, err := q.Exec(ctx, updateUrlRecordSQL,
			rec.EntityID, rec.EntityName, rec.Slug, rec.IsActive, rec.LanguageID, rec.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.AlreadyExists("url record", "slug", rec.Slug)
			}
			return fmt.Errorf("update url record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("url record", fmt.Sprint(rec.ID))
		}
		return nil
	})
}
