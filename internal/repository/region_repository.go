package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// RegionRepository manages region persistence.
type RegionRepository interface {
	// FindByName returns nil, nil when no region has that name.
	FindByName(ctx context.Context, name string) (*domain.Region, error)
	// Create inserts the region and sets its ID. A concurrent insert of the same
	// name fails with ConstraintViolation without aborting an enclosing transaction.
	Create(ctx context.Context, region *domain.Region) error
}

type regionRepository struct {
	db DBTX
}

// NewRegionRepository builds the repository.
func NewRegionRepository(db DBTX) RegionRepository {
	return &regionRepository{db: db}
}

func (r *regionRepository) FindByName(ctx context.Context, name string) (*domain.Region, error) {
	const query = `
        SELECT region_id, region_name, region_manager
        FROM regions WHERE region_name=$1`
	var region domain.Region
	err := r.db.QueryRow(ctx, query, name).Scan(&region.ID, &region.Name, &region.Manager)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find region", err)
	}
	return &region, nil
}

func (r *regionRepository) Create(ctx context.Context, region *domain.Region) error {
	const query = `
        INSERT INTO regions (region_name, region_manager)
        VALUES ($1,$2)
        RETURNING region_id`

	// Inside a transaction this is a savepoint, so a unique violation only
	// discards the failed insert.
	sp, err := r.db.Begin(ctx)
	if err != nil {
		return storeError("create region", err)
	}
	if err := sp.QueryRow(ctx, query, region.Name, region.Manager).Scan(&region.ID); err != nil {
		_ = sp.Rollback(context.WithoutCancel(ctx))
		return storeError("create region", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return storeError("create region", err)
	}
	return nil
}
