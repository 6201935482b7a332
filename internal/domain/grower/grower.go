package grower

import (
	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/domain/shared/valueobject"
)

// Grower is master data for a producer delivering product to the plant.
// The payment core reads it but never edits it; maintenance belongs to the
// reference-data subsystem.
type Grower struct {
	shared.BaseEntity
	Number   string               `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name     string               `gorm:"type:varchar(200);not null"`
	Currency valueobject.Currency `gorm:"type:varchar(3);not null;default:'CAD'"`
	PayGroup string               `gorm:"type:varchar(20);not null;index"`
	OnHold   bool                 `gorm:"not null;default:false"`
	Active   bool                 `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Grower) TableName() string {
	return "growers"
}

// CanBePaid reports whether payments may be calculated and posted for the
// grower. On-hold and inactive growers are flagged during calculation and
// skipped at posting.
func (g *Grower) CanBePaid() error {
	if !g.Active {
		return shared.NewDomainError("GROWER_INACTIVE", "Grower "+g.Number+" is inactive")
	}
	if g.OnHold {
		return shared.NewDomainError("GROWER_ON_HOLD", "Grower "+g.Number+" is on payment hold")
	}
	return nil
}

// ChequeSeries returns the cheque series growers in this currency draw from
func (g *Grower) ChequeSeries() string {
	return g.Currency.ChequeSeries()
}

// GrowerFilter narrows grower queries
type GrowerFilter struct {
	PayGroup   *string
	Active     *bool
	GrowerIDs  []uuid.UUID
	NumberLike string
}
