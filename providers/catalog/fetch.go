package catalog

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
)

// Fetcher liest Produktdaten aus den Katalogtabellen. Reiner Lesezugriff;
// Pflege der Medikamente gehört dem Katalog-Subsystem.
type Fetcher struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewFetcher erstellt einen neuen Katalog-Fetcher.
func NewFetcher(db *gorm.DB, logger *zap.Logger) *Fetcher {
	return &Fetcher{db: db, logger: logger}
}

// Get lädt ein Medikament samt Zusammensetzung.
func (f *Fetcher) Get(drugID uint) (*models.Drug, error) {
	var drug models.Drug
	if err := f.db.
		Preload("SaltLinks", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc") }).
		Preload("SaltLinks.Salt").
		First(&drug, drugID).Error; err != nil {
		return nil, err
	}
	return &drug, nil
}

// Candidates liefert den Kandidatenpool für die Alternativsuche: alle
// Medikamente des Stores mit Teilmengen-Überlappung bei den Salzen (per ID
// oder case-insensitivem Namen) und Status ACTIVE oder SALT_PENDING.
func (f *Fetcher) Candidates(storeID, excludeDrugID uint, saltIDs []uint, saltNames []string) ([]models.Drug, error) {
	if len(saltIDs) == 0 && len(saltNames) == 0 {
		return nil, nil
	}

	var drugs []models.Drug
	err := f.db.
		Where("store_id = ? AND id <> ?", storeID, excludeDrugID).
		Where("ingestion_status IN ?", []string{models.IngestionActive, models.IngestionSaltPending}).
		Where("EXISTS (SELECT 1 FROM drug_salt_links dsl JOIN salts s ON s.id = dsl.salt_id WHERE dsl.drug_id = drugs.id AND (dsl.salt_id IN ? OR lower(s.name) IN ?))",
			saltIDs, saltNames).
		Preload("SaltLinks", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc") }).
		Preload("SaltLinks.Salt").
		Order("id asc").
		Find(&drugs).Error
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Candidate pool loaded",
		zap.Uint("store_id", storeID),
		zap.Int("candidates", len(drugs)))
	return drugs, nil
}

// ActiveMappedCount zählt aktive Medikamente mit mindestens einem
// gemappten Salz in einem Store.
func (f *Fetcher) ActiveMappedCount(storeID uint) (int64, error) {
	var count int64
	err := f.db.Model(&models.Drug{}).
		Where("store_id = ? AND ingestion_status = ?", storeID, models.IngestionActive).
		Where("EXISTS (SELECT 1 FROM drug_salt_links dsl WHERE dsl.drug_id = drugs.id)").
		Count(&count).Error
	return count, err
}
