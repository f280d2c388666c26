package models

import (
	"time"

	"gorm.io/datatypes"
)

// Salt repräsentiert einen kanonischen Wirkstoff, unabhängig vom Produkt.
type Salt struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Kanonischer Name, storeweit eindeutig (case-insensitive, Service-Ebene)
	Name string `json:"name" gorm:"uniqueIndex;not null"`

	// Alternative Namen in Einfügereihenfolge (z.B. "Acetaminophen" für Paracetamol)
	Aliases datatypes.JSONSlice[string] `json:"aliases"`

	Category         string `json:"category,omitempty" gorm:"index"`
	TherapeuticClass string `json:"therapeutic_class,omitempty"`
	HighRisk         bool   `json:"high_risk"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Salt) TableName() string {
	return "salts"
}
