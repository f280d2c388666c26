package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
)

// Composition verwaltet die Zuordnung Medikament -> Wirkstoffe. Die
// Korrektur eines Links läuft immer über Unlink und erneutes Link, die
// Fremdschlüssel werden nie in place geändert.
type Composition struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewComposition erstellt einen neuen Composition-Service.
func NewComposition(db *gorm.DB, logger *zap.Logger) *Composition {
	return &Composition{db: db, logger: logger}
}

// LinkInput sind die Felder für eine neue Drug-Salt-Verknüpfung.
type LinkInput struct {
	SaltID        uint    `json:"salt_id"`
	StrengthValue float64 `json:"strength_value"`
	StrengthUnit  string  `json:"strength_unit"`
	Role          string  `json:"role"`
	Order         int     `json:"order"`
}

// LinkSalt verknüpft ein Salz mit einem Medikament. Das Paar
// (drugID, saltID) darf noch nicht existieren.
func (c *Composition) LinkSalt(drugID uint, input LinkInput) (*models.DrugSaltLink, error) {
	if input.SaltID == 0 {
		return nil, InvalidInputf("salt_id is required")
	}
	if input.StrengthValue <= 0 {
		return nil, InvalidInputf("strength_value must be positive")
	}
	if NormalizeUnit(input.StrengthUnit) == "" {
		return nil, InvalidInputf("strength_unit is required")
	}
	if input.Role == "" {
		input.Role = models.RolePrimary
	}
	if input.Role != models.RolePrimary && input.Role != models.RoleSecondary {
		return nil, InvalidInputf("role must be PRIMARY or SECONDARY")
	}
	if input.Order < 1 {
		input.Order = 1
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	var link models.DrugSaltLink
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var drug models.Drug
		if err := tx.First(&drug, drugID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("drug not found")
			}
			return err
		}

		var salt models.Salt
		if err := tx.First(&salt, input.SaltID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("salt not found")
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.DrugSaltLink{}).
			Where("drug_id = ? AND salt_id = ?", drugID, input.SaltID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Conflictf("this drug-salt mapping already exists")
		}

		link = models.DrugSaltLink{
			DrugID:        drugID,
			SaltID:        input.SaltID,
			StrengthValue: input.StrengthValue,
			StrengthUnit:  input.StrengthUnit,
			Role:          input.Role,
			Order:         input.Order,
			Salt:          salt,
		}
		return tx.Omit("Salt").Create(&link).Error
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Salt linked to drug",
		zap.Uint("drug_id", drugID),
		zap.Uint("salt_id", input.SaltID))
	return &link, nil
}

// UnlinkSalt entfernt eine Verknüpfung; existiert sie nicht, kommt NotFound
// zurück und der Bestand bleibt unverändert.
func (c *Composition) UnlinkSalt(drugID, saltID uint) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	return c.db.Transaction(func(tx *gorm.DB) error {
		var link models.DrugSaltLink
		err := tx.Where("drug_id = ? AND salt_id = ?", drugID, saltID).First(&link).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("drug-salt mapping not found")
			}
			return err
		}
		return tx.Delete(&link).Error
	})
}

// GetComposition liefert die Zusammensetzung eines Medikaments, nach
// Anzeige-Reihenfolge sortiert und mit aufgelöstem Salz.
func (c *Composition) GetComposition(drugID uint) ([]models.DrugSaltLink, error) {
	var links []models.DrugSaltLink
	if err := c.db.Where("drug_id = ?", drugID).
		Order("sort_order asc").
		Preload("Salt").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
