package services

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
)

// registryMu serialisiert alle Schreiboperationen auf Registry und
// Composition-Index. Die Eindeutigkeits- und Referenzprüfungen sind
// check-then-act über die gesamte Registry und dürfen nicht mit anderen
// Writern verzahnt laufen.
var registryMu sync.Mutex

// Registry verwaltet den Salzstamm samt Aliassen. Jede Mutation läuft in
// einer Transaktion und stößt danach den Rebuild des Alias-Index an.
type Registry struct {
	db       *gorm.DB
	logger   *zap.Logger
	resolver *AliasResolver
}

// NewRegistry erstellt eine neue Registry.
func NewRegistry(db *gorm.DB, logger *zap.Logger, resolver *AliasResolver) *Registry {
	return &Registry{db: db, logger: logger, resolver: resolver}
}

// CreateSaltInput sind die Felder für ein neues Salz.
type CreateSaltInput struct {
	Name             string `json:"name"`
	Category         string `json:"category"`
	TherapeuticClass string `json:"therapeutic_class"`
	HighRisk         bool   `json:"high_risk"`
}

// UpdateSaltInput trägt nur die mitgesendeten Felder.
type UpdateSaltInput struct {
	Name             *string `json:"name"`
	Category         *string `json:"category"`
	TherapeuticClass *string `json:"therapeutic_class"`
	HighRisk         *bool   `json:"high_risk"`
}

// CreateSalt legt ein Salz mit leerer Aliasliste an. Der Name muss
// storeweit eindeutig sein, auch gegenüber allen bestehenden Aliassen.
func (r *Registry) CreateSalt(input CreateSaltInput) (*models.Salt, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, InvalidInputf("salt name is required")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	var created models.Salt
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := checkNameFree(tx, name, 0); err != nil {
			return err
		}
		created = models.Salt{
			Name:             name,
			Aliases:          []string{},
			Category:         strings.TrimSpace(input.Category),
			TherapeuticClass: strings.TrimSpace(input.TherapeuticClass),
			HighRisk:         input.HighRisk,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}

	r.rebuildIndex()
	r.logger.Info("Salt created", zap.Uint("salt_id", created.ID), zap.String("name", created.Name))
	return &created, nil
}

// UpdateSalt aktualisiert die mitgesendeten Felder. Bei einer
// Namensänderung wird die Eindeutigkeit gegen alle anderen Salze geprüft.
func (r *Registry) UpdateSalt(id uint, input UpdateSaltInput) (*models.Salt, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	var updated models.Salt
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("salt not found")
			}
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return InvalidInputf("salt name must not be empty")
			}
			if NormalizeName(name) != NormalizeName(updated.Name) {
				if err := checkNameFree(tx, name, updated.ID); err != nil {
					return err
				}
			}
			updated.Name = name
		}
		if input.Category != nil {
			updated.Category = strings.TrimSpace(*input.Category)
		}
		if input.TherapeuticClass != nil {
			updated.TherapeuticClass = strings.TrimSpace(*input.TherapeuticClass)
		}
		if input.HighRisk != nil {
			updated.HighRisk = *input.HighRisk
		}
		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	r.rebuildIndex()
	return &updated, nil
}

// DeleteSalt löscht ein Salz, sofern keine DrugSaltLinks mehr darauf zeigen.
func (r *Registry) DeleteSalt(id uint) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var salt models.Salt
		if err := tx.First(&salt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("salt not found")
			}
			return err
		}

		var linkCount int64
		if err := tx.Model(&models.DrugSaltLink{}).Where("salt_id = ?", id).Count(&linkCount).Error; err != nil {
			return err
		}
		if linkCount > 0 {
			return InvalidStatef("cannot delete salt: it is linked to %d medicine(s), remove all links first", linkCount)
		}
		return tx.Delete(&salt).Error
	})
	if err != nil {
		return err
	}

	r.rebuildIndex()
	r.logger.Info("Salt deleted", zap.Uint("salt_id", id))
	return nil
}

// AddAlias hängt einen Alias an die geordnete Aliasliste an. Der Alias muss
// registryweit frei sein: weder eigener Alias noch Name oder Alias eines
// anderen Salzes (drei getrennte Prüfungen mit eigener Fehlermeldung).
func (r *Registry) AddAlias(id uint, alias string) (*models.Salt, error) {
	alias = strings.TrimSpace(alias)
	if len(alias) < 2 {
		return nil, InvalidInputf("alias must be at least 2 characters")
	}
	key := NormalizeName(alias)

	registryMu.Lock()
	defer registryMu.Unlock()

	var salt models.Salt
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&salt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("salt not found")
			}
			return err
		}

		for _, existing := range salt.Aliases {
			if NormalizeName(existing) == key {
				return Conflictf("alias %q already exists on salt %q", alias, salt.Name)
			}
		}

		var others []models.Salt
		if err := tx.Where("id <> ?", id).Find(&others).Error; err != nil {
			return err
		}
		for _, other := range others {
			if NormalizeName(other.Name) == key {
				return Conflictf("alias %q conflicts with the name of salt %q", alias, other.Name)
			}
		}
		for _, other := range others {
			for _, existing := range other.Aliases {
				if NormalizeName(existing) == key {
					return Conflictf("alias %q is already an alias of salt %q", alias, other.Name)
				}
			}
		}

		salt.Aliases = append(salt.Aliases, alias)
		return tx.Save(&salt).Error
	})
	if err != nil {
		return nil, err
	}

	r.rebuildIndex()
	r.logger.Info("Alias added", zap.Uint("salt_id", salt.ID), zap.String("alias", alias))
	return &salt, nil
}

// RemoveAlias entfernt genau ein case-insensitives Vorkommen des Alias.
func (r *Registry) RemoveAlias(id uint, alias string) (*models.Salt, error) {
	key := NormalizeName(alias)

	registryMu.Lock()
	defer registryMu.Unlock()

	var salt models.Salt
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&salt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("salt not found")
			}
			return err
		}

		idx := -1
		for i, existing := range salt.Aliases {
			if NormalizeName(existing) == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			return NotFoundf("alias %q not found on salt %q", alias, salt.Name)
		}

		salt.Aliases = append(salt.Aliases[:idx], salt.Aliases[idx+1:]...)
		return tx.Save(&salt).Error
	})
	if err != nil {
		return nil, err
	}

	r.rebuildIndex()
	return &salt, nil
}

// MarkHighRisk setzt das klinische Risiko-Flag.
func (r *Registry) MarkHighRisk(id uint) (*models.Salt, error) {
	high := true
	return r.UpdateSalt(id, UpdateSaltInput{HighRisk: &high})
}

// LinkedDrug ist ein Medikament aus Sicht eines Salzes.
type LinkedDrug struct {
	DrugID        uint    `json:"drug_id"`
	Name          string  `json:"name"`
	Manufacturer  string  `json:"manufacturer,omitempty"`
	Form          string  `json:"form,omitempty"`
	StrengthValue float64 `json:"strength_value"`
	StrengthUnit  string  `json:"strength_unit"`
	Role          string  `json:"role"`
}

// SaltDetail ist ein Salz samt verknüpfter Medikamente.
type SaltDetail struct {
	models.Salt
	LinkedDrugs []LinkedDrug `json:"linked_drugs"`
}

// GetSalt liefert ein Salz mit allen darauf verlinkten Medikamenten.
func (r *Registry) GetSalt(id uint) (*SaltDetail, error) {
	var salt models.Salt
	if err := r.db.First(&salt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("salt not found")
		}
		return nil, err
	}

	var linked []LinkedDrug
	if err := r.db.Model(&models.DrugSaltLink{}).
		Select("drug_salt_links.drug_id, drugs.name, drugs.manufacturer, drugs.form, drug_salt_links.strength_value, drug_salt_links.strength_unit, drug_salt_links.role").
		Joins("JOIN drugs ON drugs.id = drug_salt_links.drug_id AND drugs.deleted_at IS NULL").
		Where("drug_salt_links.salt_id = ?", id).
		Order("drugs.name asc").
		Scan(&linked).Error; err != nil {
		return nil, err
	}

	return &SaltDetail{Salt: salt, LinkedDrugs: linked}, nil
}

// ListOptions steuern die paginierte Salzliste.
type ListOptions struct {
	Page         int
	Limit        int
	Category     string
	HighRiskOnly bool
}

// ListSalts liefert eine Seite der Registry, nach Name sortiert und mit
// Verlinkungszahlen annotiert.
func (r *Registry) ListSalts(opts ListOptions) ([]SaltSearchResult, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 100
	}

	tx := r.db.Model(&models.Salt{})
	if opts.Category != "" {
		tx = tx.Where("category = ?", opts.Category)
	}
	if opts.HighRiskOnly {
		tx = tx.Where("high_risk = ?", true)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var salts []models.Salt
	if err := tx.Order("name asc").
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&salts).Error; err != nil {
		return nil, 0, err
	}

	results := make([]SaltSearchResult, 0, len(salts))
	for _, salt := range salts {
		results = append(results, SaltSearchResult{Salt: salt})
	}
	if err := r.resolver.attachLinkCounts(results); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// rebuildIndex stößt den Resolver-Rebuild an; ein Fehlschlag macht die
// Mutation nicht rückgängig, der Cron-Rebuild holt den Index später ein.
func (r *Registry) rebuildIndex() {
	if err := r.resolver.Rebuild(); err != nil {
		r.logger.Warn("Failed to rebuild alias index after mutation", zap.Error(err))
	}
}

// checkNameFree prüft, ob ein Name weder als Salzname noch als Alias eines
// anderen Salzes vergeben ist. excludeID klammert das eigene Salz aus.
func checkNameFree(tx *gorm.DB, name string, excludeID uint) error {
	key := NormalizeName(name)

	var salts []models.Salt
	if err := tx.Where("id <> ?", excludeID).Find(&salts).Error; err != nil {
		return err
	}
	for _, other := range salts {
		if NormalizeName(other.Name) == key {
			return Conflictf("salt with this name already exists")
		}
	}
	for _, other := range salts {
		for _, alias := range other.Aliases {
			if NormalizeName(alias) == key {
				return Conflictf("name %q is already an alias of salt %q", name, other.Name)
			}
		}
	}
	return nil
}
