package providers

import (
	"time"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
)

// BatchDetail ist eine einzelne Charge aus dem Bestands-Snapshot.
type BatchDetail struct {
	ID          uint       `json:"id"`
	BatchNumber string     `json:"batch_number,omitempty"`
	Quantity    int        `json:"quantity"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	Location    string     `json:"location,omitempty"`
	MRP         float64    `json:"mrp"`
}

// StockSnapshot ist der aggregierte Bestand eines Medikaments in einem
// Store. Die Chargen sind FEFO sortiert (frühester Verfall zuerst); der
// repräsentative Preis ist die MRP der zuerst abzugebenden Charge.
type StockSnapshot struct {
	TotalQuantity int           `json:"total_quantity"`
	MRP           float64       `json:"mrp"`
	Batches       []BatchDetail `json:"batches"`
}

// StockProvider liefert Bestands-Snapshots aus dem Inventory-Subsystem.
// Die Engine liest nur; Snapshots zweier naher Aufrufe dürfen abweichen.
type StockProvider interface {
	Snapshot(drugID, storeID uint) (StockSnapshot, error)
}

// MedicineCatalog liefert Produktdaten aus dem Katalog-Subsystem.
type MedicineCatalog interface {
	// Get gibt das Medikament zurück; gorm.ErrRecordNotFound, wenn unbekannt.
	Get(drugID uint) (*models.Drug, error)

	// Candidates liefert alle Medikamente eines Stores (ohne das
	// Quellmedikament), die mindestens ein Salz per ID oder Name teilen und
	// deren Ingestion-Status sie für die Alternativsuche qualifiziert.
	// Das ist bewusst ein Obermengen-Filter; die exakte Äquivalenzprüfung
	// übernimmt der Matcher. Die Reihenfolge ist deterministisch (id
	// aufsteigend), damit das stabile Ranking reproduzierbar bleibt.
	Candidates(storeID, excludeDrugID uint, saltIDs []uint, saltNames []string) ([]models.Drug, error)

	// ActiveMappedCount zählt aktive Medikamente mit mindestens einem
	// gemappten Salz in einem Store.
	ActiveMappedCount(storeID uint) (int64, error)
}
