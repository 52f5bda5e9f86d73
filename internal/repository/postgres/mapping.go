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

// mappingTable describes the storage of one association kind.
type mappingTable struct {
	targets  string
	mappings string
	column   string
}

var mappingTables = map[domain.MappingKind]mappingTable{
	domain.MappingCategory:     {targets: "categories", mappings: "product_categories", column: "category_id"},
	domain.MappingManufacturer: {targets: "manufacturers", mappings: "product_manufacturers", column: "manufacturer_id"},
}

func tableFor(kind domain.MappingKind) mappingTable {
	t, ok := mappingTables[kind]
	if !ok {
		panic(fmt.Sprintf("postgres: unknown mapping kind %q", kind))
	}
	return t
}

// TargetRepository implements repository.TargetRepository over categories or manufacturers.
type TargetRepository struct {
	db         database.DBTX
	existsStmt string
}

var _ repository.TargetRepository = (*TargetRepository)(nil)

// NewTargetRepository creates an existence lookup for the targets of kind.
func NewTargetRepository(db database.DBTX, kind domain.MappingKind) *TargetRepository {
	t := tableFor(kind)
	return &TargetRepository{
		db:         db,
		existsStmt: fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND NOT deleted)", t.targets),
	}
}

// Exists reports whether a non-deleted target with id exists.
func (r *TargetRepository) Exists(ctx context.Context, id int64) (ok bool, err error) {
	ctx, end := database.TraceQuery(ctx, "TargetExists", r.existsStmt)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, r.existsStmt, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check target: %w", err)
	}
	return ok, nil
}

// MappingRepository implements repository.MappingRepository for one association kind.
type MappingRepository struct {
	db         database.DBTX
	kind       domain.MappingKind
	existsStmt string
	insertStmt string
}

var _ repository.MappingRepository = (*MappingRepository)(nil)

// NewMappingRepository creates a mapping repository for kind.
func NewMappingRepository(db database.DBTX, kind domain.MappingKind) *MappingRepository {
	t := tableFor(kind)
	return &MappingRepository{
		db:   db,
		kind: kind,
		existsStmt: fmt.Sprintf(
			"SELECT EXISTS (SELECT 1 FROM %s WHERE product_id = $1 AND %s = $2)", t.mappings, t.column),
		insertStmt: fmt.Sprintf(
			"INSERT INTO %s (product_id, %s, is_featured_product, display_order) VALUES ($1, $2, $3, $4) RETURNING id",
			t.mappings, t.column),
	}
}

// Exists reports whether the product is already mapped to the target.
func (r *MappingRepository) Exists(ctx context.Context, productID, targetID int64) (ok bool, err error) {
	ctx, end := database.TraceQuery(ctx, "MappingExists", r.existsStmt)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, r.existsStmt, productID, targetID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check mapping: %w", err)
	}
	return ok, nil
}

// BeginBatch opens a transaction for mapping inserts.
func (r *MappingRepository) BeginBatch(ctx context.Context) (repository.MappingBatch, error) {
	b, err := database.BeginBatch(ctx, r.db)
	if err != nil {
		return nil, err
	}
	return &mappingBatch{Batch: b, repo: r}, nil
}

type mappingBatch struct {
	*database.Batch
	repo *MappingRepository
}

func (b *mappingBatch) Insert(ctx context.Context, m *domain.ProductMapping) error {
	return b.Stage(ctx, func(q pgx.Tx) error {
		err := q.QueryRow(ctx, b.repo.insertStmt,
			m.ProductID, m.TargetID, m.IsFeaturedProduct, m.DisplayOrder,
		).Scan(&m.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.ErrAlreadyExists
			}
			return fmt.Errorf("insert %s mapping: %w", b.repo.kind, err)
		}
		m.Kind = b.repo.kind
		return nil
	})
}
