package persistence

import (
	"context"
	"errors"

	"github.com/harvestpay/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// numberSequence is one named counter row. Storage detail of the sequence
// repository; nothing outside this file touches the table.
type numberSequence struct {
	Name  string `gorm:"primaryKey;type:varchar(60)"`
	Value int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (numberSequence) TableName() string {
	return "number_sequences"
}

// GormNumberSequenceRepository implements NumberSequenceRepository using GORM.
// Values are handed out under a row lock so concurrent postings in separate
// transactions never share a cheque or batch number. Callers must hold a
// transaction; a rollback returns the reserved values to the counter, which
// keeps posted sequences gapless.
type GormNumberSequenceRepository struct {
	db *gorm.DB
}

// NewGormNumberSequenceRepository creates a new GormNumberSequenceRepository
func NewGormNumberSequenceRepository(db *gorm.DB) *GormNumberSequenceRepository {
	return &GormNumberSequenceRepository{db: db}
}

// Next reserves and returns the next value for the named sequence, creating
// the row seeded at start when it does not exist yet
func (r *GormNumberSequenceRepository) Next(ctx context.Context, name string, start int64) (int64, error) {
	first, err := r.reserve(ctx, name, start, 1)
	if err != nil {
		return 0, err
	}
	return first, nil
}

// NextRange reserves count consecutive values and returns the first
func (r *GormNumberSequenceRepository) NextRange(ctx context.Context, name string, start int64, count int) (int64, error) {
	if count < 1 {
		return 0, shared.NewDomainError("INVALID_INPUT", "Sequence range count must be at least 1")
	}
	return r.reserve(ctx, name, start, int64(count))
}

// Current returns the last handed-out value without reserving
func (r *GormNumberSequenceRepository) Current(ctx context.Context, name string) (int64, error) {
	var seq numberSequence
	if err := r.db.WithContext(ctx).First(&seq, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return seq.Value, nil
}

func (r *GormNumberSequenceRepository) reserve(ctx context.Context, name string, start, count int64) (int64, error) {
	var seq numberSequence
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = numberSequence{Name: name, Value: start}
		if err := r.db.WithContext(ctx).Create(&seq).Error; err != nil {
			return 0, err
		}
		// Re-lock the freshly created row so a concurrent creator serializes
		// behind it.
		if err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&seq, "name = ?", name).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	first := seq.Value + 1
	seq.Value += count
	if err := r.db.WithContext(ctx).Save(&seq).Error; err != nil {
		return 0, err
	}
	return first, nil
}
