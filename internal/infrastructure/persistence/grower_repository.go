package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormGrowerRepository implements GrowerRepository using GORM
type GormGrowerRepository struct {
	db *gorm.DB
}

// NewGormGrowerRepository creates a new GormGrowerRepository
func NewGormGrowerRepository(db *gorm.DB) *GormGrowerRepository {
	return &GormGrowerRepository{db: db}
}

// FindByID finds a grower by its ID
func (r *GormGrowerRepository) FindByID(ctx context.Context, id uuid.UUID) (*grower.Grower, error) {
	var g grower.Grower
	if err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindByNumber finds a grower by its grower number
func (r *GormGrowerRepository) FindByNumber(ctx context.Context, number string) (*grower.Grower, error) {
	var g grower.Grower
	if err := r.db.WithContext(ctx).First(&g, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindAll finds growers matching the filter
func (r *GormGrowerRepository) FindAll(ctx context.Context, filter grower.GrowerFilter, page shared.Filter) ([]grower.Grower, error) {
	query := r.db.WithContext(ctx).Model(&grower.Grower{})

	if filter.PayGroup != nil {
		query = query.Where("pay_group = ?", *filter.PayGroup)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if len(filter.GrowerIDs) > 0 {
		query = query.Where("id IN ?", filter.GrowerIDs)
	}
	if filter.NumberLike != "" {
		query = query.Where("number LIKE ?", filter.NumberLike+"%")
	}

	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}

	var growers []grower.Grower
	if err := query.
		Order("number ASC").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Find(&growers).Error; err != nil {
		return nil, err
	}
	return growers, nil
}
