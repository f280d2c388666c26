package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
)

// newTestDB öffnet eine frische In-Memory-Datenbank mit migriertem Schema.
// Eine Verbindung, damit :memory: nicht pro Pool-Connection neu entsteht.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Salt{},
		&models.DrugSaltLink{},
		&models.Drug{},
		&models.InventoryBatch{},
	))
	return db
}

func newTestRegistry(t *testing.T) (*Registry, *AliasResolver, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop()
	resolver := NewAliasResolver(db, logger)
	require.NoError(t, resolver.Rebuild())
	return NewRegistry(db, logger, resolver), resolver, db
}

func mustCreateSalt(t *testing.T, r *Registry, name, category string) *models.Salt {
	t.Helper()
	salt, err := r.CreateSalt(CreateSaltInput{Name: name, Category: category})
	require.NoError(t, err)
	return salt
}

func createDrug(t *testing.T, db *gorm.DB, storeID uint, name, form, status string) *models.Drug {
	t.Helper()
	drug := &models.Drug{
		StoreID:         storeID,
		Name:            name,
		Form:            form,
		IngestionStatus: status,
	}
	require.NoError(t, db.Create(drug).Error)
	return drug
}

func createBatch(t *testing.T, db *gorm.DB, drugID, storeID uint, quantity int, mrp float64, expiry time.Time) {
	t.Helper()
	batch := &models.InventoryBatch{
		DrugID:          drugID,
		StoreID:         storeID,
		BatchNumber:     "B-" + expiry.Format("20060102"),
		QuantityInStock: quantity,
		MRP:             mrp,
		ExpiryDate:      &expiry,
	}
	require.NoError(t, db.Create(batch).Error)
}
