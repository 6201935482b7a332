// Package integration hosts end-to-end tests that run the payment services
// against a real PostgreSQL instance started through testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harvestpay/backend/internal/infrastructure/config"
	"github.com/harvestpay/backend/internal/infrastructure/persistence"
)

var (
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is a migrated PostgreSQL database running in a container.
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a dedicated PostgreSQL container, applies all migrations
// and returns a connection. The container is terminated when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startContainer(t, "harvestpay_test")
	db, sqlDB := connect(t, dsn)
	applyMigrations(t, sqlDB)

	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// NewSharedTestDB returns a connection to a container shared across tests in
// the package. Migrations run once, each caller gets its own connection, and
// the container outlives individual tests. Callers that mutate data should
// clean up after themselves or use WithTransaction.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer == nil {
		container, dsn := startContainer(t, "harvestpay_shared_test")

		db, sqlDB := connect(t, dsn)
		applyMigrations(t, sqlDB)
		_ = sqlDB.Close()
		_ = db

		sharedContainer = container
		sharedContainerDSN = dsn
	}

	db, sqlDB := connect(t, sharedContainerDSN)
	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: sharedContainer, DSN: sharedContainerDSN, t: t}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return tdb
}

// Close closes the connection and, for dedicated containers, terminates the
// container. The shared container is left running for later tests.
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil && tdb.Container != sharedContainer {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("terminate container: %v", err)
		}
	}
}

// CleanupSharedContainer terminates the shared container. Call it from
// TestMain when the package uses NewSharedTestDB.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}

// CleanTables truncates every public table except the migration bookkeeping.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err)

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("truncate %s: %v", table, err)
		}
	}
}

// WithTransaction runs fn inside a transaction that is always rolled back.
func (tdb *TestDB) WithTransaction(fn func(tx *gorm.DB)) {
	tdb.t.Helper()

	tx := tdb.DB.Begin()
	require.NoError(tdb.t, tx.Error)
	defer tx.Rollback()

	fn(tx)
}

func startContainer(t *testing.T, dbName string) (testcontainers.Container, string) {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "read container connection string")
	return container, dsn
}

// connect opens the database through the production persistence layer so the
// tests exercise the same GORM configuration the server runs with.
func connect(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	cfg, err := databaseConfigFromURL(dsn)
	require.NoError(t, err)

	var db *persistence.Database
	if os.Getenv("TEST_DB_DEBUG") != "" {
		db, err = persistence.NewDatabaseWithCustomLogger(cfg, gormlogger.Default.LogMode(gormlogger.Info))
	} else {
		db, err = persistence.NewDatabase(cfg)
	}
	require.NoError(t, err, "connect to database")

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	return db.DB, sqlDB
}

// databaseConfigFromURL translates the postgres:// URL testcontainers hands
// out into the keyword config the persistence layer expects.
func databaseConfigFromURL(dsn string) (*config.DatabaseConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	port := 5432
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse database port: %w", err)
		}
	}
	password, _ := u.User.Password()

	return &config.DatabaseConfig{
		Host:            u.Hostname(),
		Port:            port,
		User:            u.User.Username(),
		Password:        password,
		DBName:          filepath.Base(u.Path),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
	}, nil
}

func applyMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := findMigrationsPath()
	require.NotEmpty(t, migrationsPath, "migrations directory not found")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err)

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err)

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "apply migrations")
	}
}

// findMigrationsPath walks up from this file towards the repository root
// looking for the migrations directory, then falls back to the working
// directory for callers running from unusual locations.
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if ok {
		dir := filepath.Dir(filename)
		for i := 0; i < 5; i++ {
			candidate := filepath.Join(dir, "migrations")
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			dir = filepath.Dir(dir)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		for _, p := range []string{
			filepath.Join(wd, "migrations"),
			filepath.Join(wd, "..", "migrations"),
			filepath.Join(wd, "..", "..", "migrations"),
		} {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// CreateTestGrower seeds a grower row. Payment tables carry foreign keys to
// growers, so most scenarios start here.
func (tdb *TestDB) CreateTestGrower(growerID fmt.Stringer, number, payGroup string) {
	tdb.t.Helper()

	name := fmt.Sprintf("Test Grower %s", number)
	err := tdb.DB.Exec(`
		INSERT INTO growers (id, number, name, currency, pay_group, on_hold, active)
		VALUES (?, ?, ?, 'CAD', ?, FALSE, TRUE)
		ON CONFLICT (id) DO NOTHING
	`, growerID.String(), number, name, payGroup).Error
	require.NoError(tdb.t, err, "Failed to create test grower")
}

// CreateTestReceipt seeds a delivery receipt for a grower.
func (tdb *TestDB) CreateTestReceipt(receiptID, growerID, productID, processID, depotID fmt.Stringer, number string, cropYear int, receiptDate time.Time, receiptTime string, netWeight string) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO receipts (id, receipt_number, grower_id, product_id, process_id, depot_id, crop_year, receipt_date, receipt_time, net_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, receiptID.String(), number, growerID.String(), productID.String(), processID.String(), depotID.String(), cropYear, receiptDate, receiptTime, netWeight).Error
	require.NoError(tdb.t, err, "Failed to create test receipt")
}

// CreateTestPriceSchedule seeds an effective price row for one product and
// process at the given advance tier.
func (tdb *TestDB) CreateTestPriceSchedule(scheduleID, productID, processID fmt.Stringer, cropYear, advanceNumber int, effectiveFrom time.Time, pricePerLb, premiumPerLb, marketingRatePerLb string, premiumCutoff string) {
	tdb.t.Helper()

	var cutoff any
	if premiumCutoff != "" {
		cutoff = premiumCutoff
	}
	err := tdb.DB.Exec(`
		INSERT INTO price_schedules (id, crop_year, product_id, process_id, advance_number, effective_from, price_per_lb, premium_cutoff, premium_per_lb, marketing_rate_per_lb)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, scheduleID.String(), cropYear, productID.String(), processID.String(), advanceNumber, effectiveFrom, pricePerLb, cutoff, premiumPerLb, marketingRatePerLb).Error
	require.NoError(tdb.t, err, "Failed to create test price schedule")
}
