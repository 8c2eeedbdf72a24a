// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/storefront/internal/database"
	"github.com/javajoker/storefront/internal/models"
)

// Open returns a migrated in-memory database private to the test. The pool
// is pinned to one connection, so transactions from concurrent goroutines
// run one after another, the way row locks serialise them on PostgreSQL.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// PostgresDSNEnv names the variable holding a PostgreSQL DSN for tests that
// need real row locks and a connection pool.
const PostgresDSNEnv = "STOREFRONT_TEST_POSTGRES_DSN"

// OpenPostgres returns a migrated database in a throwaway schema, or skips
// the test when PostgresDSNEnv is unset.
func OpenPostgres(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	admin, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	schemaName := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := admin.Exec("CREATE SCHEMA " + schemaName).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		admin.Exec("DROP SCHEMA " + schemaName + " CASCADE")
		if sqlDB, err := admin.DB(); err == nil {
			sqlDB.Close()
		}
	})

	db, err := gorm.Open(postgres.Open(withSearchPath(dsn, schemaName)), gormConfig)
	if err != nil {
		t.Fatalf("open postgres schema: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(16)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// withSearchPath adds search_path to a URL or keyword/value DSN.
func withSearchPath(dsn, schemaName string) string {
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schemaName
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&search_path=" + schemaName
	}
	return dsn + "?search_path=" + schemaName
}

// CreateProduct inserts a product with the given price and optional sizes.
func CreateProduct(t testing.TB, db *gorm.DB, slug, price string, sizes ...string) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:  slug,
		Slug:  slug,
		Price: decimal.RequireFromString(price),
	}
	for _, name := range sizes {
		product.Sizes = append(product.Sizes, models.ProductSize{Name: name, Stock: 10})
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product %s: %v", slug, err)
	}
	return product
}

// SizeID returns the id of the named size of product.
func SizeID(t testing.TB, product *models.Product, name string) uuid.UUID {
	t.Helper()

	for _, size := range product.Sizes {
		if size.Name == name {
			return size.ID
		}
	}
	t.Fatalf("product %s has no size %s", product.Slug, name)
	return uuid.Nil
}
