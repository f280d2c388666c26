package inventory

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
	"github.com/DikshantJangra/hoperxpharma-sub005/providers"
)

// Fetcher liest Bestands-Snapshots direkt aus den Chargen-Tabellen des
// Inventory-Subsystems. Reiner Lesezugriff.
type Fetcher struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewFetcher erstellt einen neuen Inventory-Fetcher.
func NewFetcher(db *gorm.DB, logger *zap.Logger) *Fetcher {
	return &Fetcher{db: db, logger: logger}
}

// Snapshot aggregiert alle nicht gelöschten Chargen mit Bestand > 0,
// FEFO sortiert. Repräsentativer Preis ist die MRP der ersten Charge.
func (f *Fetcher) Snapshot(drugID, storeID uint) (providers.StockSnapshot, error) {
	var batches []models.InventoryBatch
	if err := f.db.
		Where("drug_id = ? AND store_id = ? AND quantity_in_stock > 0", drugID, storeID).
		Order("expiry_date asc").
		Find(&batches).Error; err != nil {
		return providers.StockSnapshot{}, err
	}

	snapshot := providers.StockSnapshot{
		Batches: make([]providers.BatchDetail, 0, len(batches)),
	}
	for _, batch := range batches {
		snapshot.TotalQuantity += batch.QuantityInStock
		snapshot.Batches = append(snapshot.Batches, providers.BatchDetail{
			ID:          batch.ID,
			BatchNumber: batch.BatchNumber,
			Quantity:    batch.QuantityInStock,
			ExpiryDate:  batch.ExpiryDate,
			Location:    batch.Location,
			MRP:         batch.MRP,
		})
	}
	if len(snapshot.Batches) > 0 {
		snapshot.MRP = snapshot.Batches[0].MRP
	}
	return snapshot, nil
}
