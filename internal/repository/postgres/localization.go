package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	"github.com/utafrali/catalogimporter/pkg/database"
)

const listActiveLanguagesSQL = `
	SELECT id, name, language_culture, unique_seo_code, published, display_order
	FROM languages
	WHERE published
	ORDER BY display_order, id`

// LanguageRepository implements repository.LanguageRepository using PostgreSQL.
type LanguageRepository struct {
	db database.DBTX
}

var _ repository.LanguageRepository = (*LanguageRepository)(nil)

// NewLanguageRepository creates a new PostgreSQL-backed language repository.
func NewLanguageRepository(db database.DBTX) *LanguageRepository {
	return &LanguageRepository{db: db}
}

// ListActive returns published languages ordered by display order.
func (r *LanguageRepository) ListActive(ctx context.Context) (out []domain.Language, err error) {
	ctx, end := database.TraceQuery(ctx, "ListActiveLanguages", listActiveLanguagesSQL)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listActiveLanguagesSQL)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Language
		if err := rows.Scan(&l.ID, &l.Name, &l.LanguageCulture, &l.UniqueSeoCode, &l.Published, &l.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate languages: %w", err)
	}
	return out, nil
}

const (
	getLocalizedPropertySQL = `
		SELECT id, entity_id, language_id, locale_key_group, locale_key, locale_value
		FROM localized_properties
		WHERE entity_id = $1 AND language_id = $2 AND locale_key_group = $3 AND locale_key = $4`

	// The WHERE clause on the conflict branch leaves unchanged values
	// untouched, so an equal value reports zero affected rows.
	upsertLocalizedPropertySQL = `
		INSERT INTO localized_properties (entity_id, language_id, locale_key_group, locale_key, locale_value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, language_id, locale_key_group, locale_key)
		DO UPDATE SET locale_value = EXCLUDED.locale_value
		WHERE localized_properties.locale_value IS DISTINCT FROM EXCLUDED.locale_value
		RETURNING id`
)

// LocalizedPropertyRepository implements repository.LocalizedPropertyRepository using PostgreSQL.
type LocalizedPropertyRepository struct {
	db database.DBTX
}

var _ repository.LocalizedPropertyRepository = (*LocalizedPropertyRepository)(nil)

// NewLocalizedPropertyRepository creates a new PostgreSQL-backed localized property repository.
func NewLocalizedPropertyRepository(db database.DBTX) *LocalizedPropertyRepository {
	return &LocalizedPropertyRepository{db: db}
}

// Get retrieves one localized value.
func (r *LocalizedPropertyRepository) Get(ctx context.Context, entityID int64, languageID int, keyGroup, key string) (p *domain.LocalizedProperty, err error) {
	ctx, end := database.TraceQuery(ctx, "GetLocalizedProperty", getLocalizedPropertySQL)
	defer func() { end(err) }()

	p = &domain.LocalizedProperty{}
	err = r.db.QueryRow(ctx, getLocalizedPropertySQL, entityID, languageID, keyGroup, key).Scan(
		&p.ID, &p.EntityID, &p.LanguageID, &p.LocaleKeyGroup, &p.LocaleKey, &p.LocaleValue,
	)
	if err != nil {
		return nil, notFound(err, "get localized property")
	}
	return p, nil
}

// BeginBatch opens a transaction for localized property writes.
func (r *LocalizedPropertyRepository) BeginBatch(ctx context.Context) (repository.LocalizedPropertyBatch, error) {
	b, err := database.BeginBatch(ctx, r.db)
	if err != nil {
		return nil, err
	}
	return &localizedPropertyBatch{Batch: b}, nil
}

type localizedPropertyBatch struct {
	*database.Batch
}

func (b *localizedPropertyBatch) Upsert(ctx context.Context, p *domain.LocalizedProperty) (bool, error) {
	changed := false
	err := b.Stage(ctx, func(q pgx.Tx) error {
		err := q.QueryRow(ctx, upsertLocalizedPropertySQL,
			p.EntityID, p.LanguageID, p.LocaleKeyGroup, p.LocaleKey, p.LocaleValue,
		).Scan(&p.ID)
		switch {
		case err == nil:
			changed = true
			return nil
		case errors.Is(err, pgx.ErrNoRows):
			return nil
		default:
			return fmt.Errorf("upsert localized property: %w", err)
		}
	})
	return changed, err
}
