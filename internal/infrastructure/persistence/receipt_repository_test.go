package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormReceiptRepository_FindEligible(t *testing.T) {
	t.Run("filters on crop year, cutoff and unallocated tier", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceiptRepository(gormDB)

		growerID := uuid.New()
		receiptID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "receipt_number", "grower_id", "crop_year", "net_weight"}).
			AddRow(receiptID, "R-000123", growerID, 2026, "1250.50")

		mock.ExpectQuery(`SELECT \* FROM "receipts" WHERE receipts\.grower_id = \$1 AND \(receipts\.crop_year = \$2 AND receipts\.receipt_date <= \$3\) AND \(?NOT EXISTS .*receipt_payment_allocations.*voided_at IS NULL.*ORDER BY receipt_date ASC.*`).
			WillReturnRows(rows)

		receipts, err := repo.FindEligible(context.Background(), grower.EligibilityQuery{
			GrowerID:      growerID,
			CropYear:      2026,
			CutoffDate:    time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
			AdvanceNumber: 1,
		})

		assert.NoError(t, err)
		require.Len(t, receipts, 1)
		assert.Equal(t, "R-000123", receipts[0].ReceiptNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("narrows by product and depot when given", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceiptRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "receipts" WHERE .*receipts\.product_id IN .*receipts\.depot_id IN .*`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		receipts, err := repo.FindEligible(context.Background(), grower.EligibilityQuery{
			GrowerID:      uuid.New(),
			CropYear:      2026,
			CutoffDate:    time.Now(),
			AdvanceNumber: 2,
			ProductIDs:    []uuid.UUID{uuid.New()},
			DepotIDs:      []uuid.UUID{uuid.New()},
		})

		assert.NoError(t, err)
		assert.Empty(t, receipts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReceiptRepository_GrowersWithEligibleReceipts(t *testing.T) {
	cutoff := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	t.Run("keeps inactive growers in the run", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceiptRepository(gormDB)

		activeID := uuid.New()
		inactiveID := uuid.New()

		// The WHERE clause ends at the allocation subquery: no predicate on
		// growers.active, so inactive growers surface for flagging instead
		// of vanishing from the run.
		mock.ExpectQuery(`SELECT DISTINCT receipts\.grower_id FROM "receipts" JOIN growers ON growers\.id = receipts\.grower_id WHERE \(receipts\.crop_year = \$1 AND receipts\.receipt_date <= \$2\) AND \(?NOT EXISTS \(\s*SELECT 1 FROM receipt_payment_allocations a\s+WHERE a\.receipt_id = receipts\.id\s+AND a\.advance_number = \$3\s+AND a\.voided_at IS NULL\s*\)\)? ORDER BY receipts\.grower_id`).
			WithArgs(2026, cutoff, 1).
			WillReturnRows(sqlmock.NewRows([]string{"grower_id"}).AddRow(activeID).AddRow(inactiveID))

		growerIDs, err := repo.GrowersWithEligibleReceipts(context.Background(), 2026, cutoff, 1, nil)

		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{activeID, inactiveID}, growerIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("narrows by pay group when given", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceiptRepository(gormDB)

		payGroup := "NORTH"
		mock.ExpectQuery(`SELECT DISTINCT receipts\.grower_id FROM "receipts" JOIN growers ON .* AND growers\.pay_group = \$4 ORDER BY receipts\.grower_id`).
			WithArgs(2026, cutoff, 2, payGroup).
			WillReturnRows(sqlmock.NewRows([]string{"grower_id"}))

		growerIDs, err := repo.GrowersWithEligibleReceipts(context.Background(), 2026, cutoff, 2, &payGroup)

		assert.NoError(t, err)
		assert.Empty(t, growerIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReceiptRepository_CountEligible(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormReceiptRepository(gormDB)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "receipts" WHERE .*NOT EXISTS.*`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountEligible(context.Background(), grower.EligibilityQuery{
		GrowerID:      uuid.New(),
		CropYear:      2026,
		CutoffDate:    time.Now(),
		AdvanceNumber: 1,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
