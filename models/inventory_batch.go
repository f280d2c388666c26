package models

import (
	"time"

	"gorm.io/gorm"
)

// InventoryBatch ist eine Charge im Bestand eines Stores. Die Engine liest
// Chargen nur als Stock-Snapshot; Zu- und Abgänge gehören dem
// Inventory-Subsystem.
type InventoryBatch struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	DrugID  uint `json:"drug_id" gorm:"index;not null"`
	StoreID uint `json:"store_id" gorm:"index;not null"`

	BatchNumber     string     `json:"batch_number,omitempty"`
	QuantityInStock int        `json:"quantity_in_stock"`
	MRP             float64    `json:"mrp"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Location        string     `json:"location,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (InventoryBatch) TableName() string {
	return "inventory_batches"
}
