package models

import (
	"time"

	"gorm.io/gorm"
)

// Ingestion-Status eines Medikaments im Katalog. Ein Medikament mitten im
// Import (SALT_PENDING) ist für die Alternativsuche bereits zulässig.
const (
	IngestionActive      = "ACTIVE"
	IngestionSaltPending = "SALT_PENDING"
	IngestionDraft       = "DRAFT"
)

// Drug ist der storebezogene Produktdatensatz aus dem Katalog-Subsystem.
// Die Engine konsumiert ihn nur; Pflege passiert außerhalb.
type Drug struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	StoreID uint `json:"store_id" gorm:"index;not null"`

	Name         string `json:"name" gorm:"not null"`
	GenericName  string `json:"generic_name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Form         string `json:"form,omitempty"` // Tablet, Syrup, ...

	IngestionStatus string `json:"ingestion_status" gorm:"index;default:SALT_PENDING"`

	SaltLinks []DrugSaltLink `json:"salt_links,omitempty" gorm:"foreignKey:DrugID"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Drug) TableName() string {
	return "drugs"
}
