// Package testutil abre bases SQLite en memoria para los tests, una por
// test, con el esquema del módulo ya migrado.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ERPlora/module-customers/internal/domain"
)

var dbSeq atomic.Int64

// OpenTestDB abre una base vacía exclusiva del test, sin migrar nada.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestDB abre la base y migra customers y sales.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := OpenTestDB(t)
	if err := db.AutoMigrate(&domain.Customer{}, &domain.Sale{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
