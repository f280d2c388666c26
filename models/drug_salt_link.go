package models

import (
	"time"
)

// Rollen eines Salzes innerhalb eines Kombinationspräparats.
const (
	RolePrimary   = "PRIMARY"
	RoleSecondary = "SECONDARY"
)

// DrugSaltLink verknüpft ein Medikament mit einem Wirkstoff samt Stärke.
// Das Paar (DrugID, SaltID) ist eindeutig; Korrekturen laufen über
// Löschen und Neuanlegen, nie über Umhängen der Fremdschlüssel.
type DrugSaltLink struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	DrugID uint `json:"drug_id" gorm:"uniqueIndex:idx_drug_salt;not null"`
	SaltID uint `json:"salt_id" gorm:"uniqueIndex:idx_drug_salt;not null"`

	StrengthValue float64 `json:"strength_value" gorm:"not null"`
	StrengthUnit  string  `json:"strength_unit" gorm:"not null"` // z.B. "mg"

	Role  string `json:"role" gorm:"default:PRIMARY"`
	Order int    `json:"order" gorm:"column:sort_order;default:1"`

	Salt Salt `json:"salt" gorm:"foreignKey:SaltID"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (DrugSaltLink) TableName() string {
	return "drug_salt_links"
}
