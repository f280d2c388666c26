package services

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
	"github.com/DikshantJangra/hoperxpharma-sub005/providers"
)

// Stärke-Klassifikation eines Kandidaten gegenüber dem Quellmedikament.
const (
	StrengthExact     = "EXACT"
	StrengthDifferent = "DIFFERENT"
)

// Matcher findet abgabefähige Alternativen mit exakt gleicher
// Wirkstoffzusammensetzung. Jede Anfrage ist eine in sich geschlossene
// Lese-Pipeline ohne geteilten Zustand; parallele Aufrufe brauchen keine
// Koordination.
type Matcher struct {
	catalog     providers.MedicineCatalog
	stock       providers.StockProvider
	composition *Composition
	logger      *zap.Logger
}

// NewMatcher erstellt einen neuen Matcher.
func NewMatcher(catalog providers.MedicineCatalog, stock providers.StockProvider, composition *Composition, logger *zap.Logger) *Matcher {
	return &Matcher{catalog: catalog, stock: stock, composition: composition, logger: logger}
}

// SaltDose ist eine (Wirkstoff, Stärke)-Anzeigezeile.
type SaltDose struct {
	Name     string `json:"name"`
	Strength string `json:"strength"` // z.B. "500 mg"
}

// OriginalDrug beschreibt das Quellmedikament in der Antwort.
type OriginalDrug struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Form         string     `json:"form,omitempty"`
	Salts        []SaltDose `json:"salts"`
	Available    bool       `json:"available"`
	TotalStock   int        `json:"total_stock"`
}

// Alternative ist ein Kandidat, der die exakte Äquivalenzprüfung bestanden
// hat, samt Fidelity-Flags und Preisdelta.
type Alternative struct {
	DrugID                 uint                    `json:"drug_id"`
	Name                   string                  `json:"name"`
	Manufacturer           string                  `json:"manufacturer,omitempty"`
	Form                   string                  `json:"form,omitempty"`
	Salts                  []SaltDose              `json:"salts"`
	MRP                    float64                 `json:"mrp"`
	TotalStock             int                     `json:"total_stock"`
	IsGeneric              bool                    `json:"is_generic"`
	Batches                []providers.BatchDetail `json:"batches"`
	StrengthMatch          string                  `json:"strength_match"`
	FormMatch              bool                    `json:"form_match"`
	PriceDifference        float64                 `json:"price_difference"`
	PriceDifferencePercent float64                 `json:"price_difference_percent"`
}

// AlternativesResult ist die vollständige Antwort der Alternativsuche.
type AlternativesResult struct {
	OriginalDrug      OriginalDrug  `json:"original_drug"`
	Alternatives      []Alternative `json:"alternatives"`
	TotalAlternatives int           `json:"total_alternatives"`
	Warnings          []string      `json:"warnings"`
}

// strengthKey ist die normalisierte Stärke eines Wirkstoffs.
type strengthKey struct {
	value float64
	unit  string
}

// FindAlternatives liefert alle exakt salzäquivalenten Medikamente des
// Stores mit Bestand >= minStock, deterministisch gerankt. "Keine
// Alternativen" und "keine Zusammensetzung gemappt" sind gültige leere
// Ergebnisse mit Warnung, keine Fehler.
func (m *Matcher) FindAlternatives(drugID, storeID uint, minStock int) (*AlternativesResult, error) {
	if drugID == 0 || storeID == 0 {
		return nil, InvalidInputf("drugId and storeId are required")
	}

	source, err := m.catalog.Get(drugID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("drug not found")
		}
		return nil, err
	}

	sourceStock, err := m.stock.Snapshot(drugID, storeID)
	if err != nil {
		return nil, err
	}

	links, err := m.composition.GetComposition(drugID)
	if err != nil {
		return nil, err
	}

	result := &AlternativesResult{
		OriginalDrug: OriginalDrug{
			ID:           source.ID,
			Name:         source.Name,
			Manufacturer: source.Manufacturer,
			Form:         source.Form,
			Salts:        saltDoses(links),
			Available:    sourceStock.TotalQuantity > 0,
			TotalStock:   sourceStock.TotalQuantity,
		},
		Alternatives: []Alternative{},
		Warnings:     []string{},
	}

	if len(links) == 0 {
		result.Warnings = append(result.Warnings, "original drug has no salt composition mapped")
		return result, nil
	}

	// Quellzusammensetzung normalisieren: Namen und Einheiten sind
	// Freitext aus unterschiedlichen Quellen und vergleichen nur über die
	// gefaltete Form.
	sourceStrengths := make(map[string]strengthKey, len(links))
	saltIDs := make([]uint, 0, len(links))
	saltNames := make([]string, 0, len(links))
	for _, link := range links {
		name := NormalizeName(link.Salt.Name)
		sourceStrengths[name] = strengthKey{value: link.StrengthValue, unit: NormalizeUnit(link.StrengthUnit)}
		saltIDs = append(saltIDs, link.SaltID)
		saltNames = append(saltNames, name)
	}

	candidates, err := m.catalog.Candidates(storeID, drugID, saltIDs, saltNames)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		stock, err := m.stock.Snapshot(candidate.ID, storeID)
		if err != nil {
			return nil, err
		}
		if stock.TotalQuantity < minStock {
			continue
		}

		candidateStrengths := make(map[string]strengthKey, len(candidate.SaltLinks))
		for _, link := range candidate.SaltLinks {
			candidateStrengths[NormalizeName(link.Salt.Name)] = strengthKey{
				value: link.StrengthValue,
				unit:  NormalizeUnit(link.StrengthUnit),
			}
		}

		// Exakte Äquivalenz in beide Richtungen: ein Kombipräparat mit
		// einem zusätzlichen Wirkstoff ist kein sicherer Ersatz.
		if !sameSaltSet(sourceStrengths, candidateStrengths) {
			continue
		}

		strengthMatch := StrengthExact
		for name, src := range sourceStrengths {
			cand := candidateStrengths[name]
			if cand.value != src.value || cand.unit != src.unit {
				strengthMatch = StrengthDifferent
				break
			}
		}

		priceDifference := stock.MRP - sourceStock.MRP
		priceDifferencePercent := 0.0
		if sourceStock.MRP > 0 {
			priceDifferencePercent = math.Round(priceDifference/sourceStock.MRP*1000) / 10
		}

		result.Alternatives = append(result.Alternatives, Alternative{
			DrugID:                 candidate.ID,
			Name:                   candidate.Name,
			Manufacturer:           candidate.Manufacturer,
			Form:                   candidate.Form,
			Salts:                  saltDoses(candidate.SaltLinks),
			MRP:                    stock.MRP,
			TotalStock:             stock.TotalQuantity,
			IsGeneric:              isGeneric(candidate),
			Batches:                stock.Batches,
			StrengthMatch:          strengthMatch,
			FormMatch:              candidate.Form == source.Form,
			PriceDifference:        priceDifference,
			PriceDifferencePercent: priceDifferencePercent,
		})
	}

	rankAlternatives(result.Alternatives)
	result.TotalAlternatives = len(result.Alternatives)

	m.logger.Info("Alternatives computed",
		zap.Uint("drug_id", drugID),
		zap.Uint("store_id", storeID),
		zap.Int("alternatives", result.TotalAlternatives))
	return result, nil
}

// Statistics zählt die aktiven Medikamente mit gemappter Zusammensetzung
// in einem Store.
func (m *Matcher) Statistics(storeID uint) (int64, error) {
	if storeID == 0 {
		return 0, InvalidInputf("storeId is required")
	}
	return m.catalog.ActiveMappedCount(storeID)
}

// sameSaltSet prüft bidirektionale Namensmengen-Gleichheit.
func sameSaltSet(source, candidate map[string]strengthKey) bool {
	if len(source) != len(candidate) {
		return false
	}
	for name := range source {
		if _, ok := candidate[name]; !ok {
			return false
		}
	}
	return true
}

// isGeneric ist eine Heuristik: explizites Generikum-Feld oder "generic"
// im Produktnamen.
func isGeneric(drug models.Drug) bool {
	if drug.GenericName != "" {
		return true
	}
	return strings.Contains(strings.ToLower(drug.Name), "generic")
}

// saltDoses rendert eine Zusammensetzung als Anzeigezeilen.
func saltDoses(links []models.DrugSaltLink) []SaltDose {
	doses := make([]SaltDose, 0, len(links))
	for _, link := range links {
		doses = append(doses, SaltDose{
			Name:     link.Salt.Name,
			Strength: strconv.FormatFloat(link.StrengthValue, 'f', -1, 64) + " " + link.StrengthUnit,
		})
	}
	return doses
}
