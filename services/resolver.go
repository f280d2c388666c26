package services

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
)

// AliasResolver löst Freitext-Wirkstoffnamen auf kanonische Salze auf.
// Namenstreffer haben immer Vorrang vor Aliastreffern. Da die Aliasliste
// unindizierter Freitext ist, hält der Resolver einen abgeleiteten,
// case-gefalteten Index (Name -> Salz, Alias -> Salz), der nach jeder
// Registry-Mutation und periodisch per Cron neu aufgebaut wird.
type AliasResolver struct {
	db     *gorm.DB
	logger *zap.Logger

	mu      sync.RWMutex
	byName  map[string]uint
	byAlias map[string]uint
}

// NewAliasResolver erstellt einen Resolver ohne aufgebauten Index.
func NewAliasResolver(db *gorm.DB, logger *zap.Logger) *AliasResolver {
	return &AliasResolver{db: db, logger: logger}
}

// Rebuild baut den gefalteten Index aus dem aktuellen Registry-Stand neu auf.
func (r *AliasResolver) Rebuild() error {
	var salts []models.Salt
	if err := r.db.Find(&salts).Error; err != nil {
		return err
	}

	byName := make(map[string]uint, len(salts))
	byAlias := make(map[string]uint)
	for _, salt := range salts {
		byName[NormalizeName(salt.Name)] = salt.ID
		for _, alias := range salt.Aliases {
			byAlias[NormalizeName(alias)] = salt.ID
		}
	}

	r.mu.Lock()
	r.byName = byName
	r.byAlias = byAlias
	r.mu.Unlock()

	r.logger.Debug("Alias index rebuilt",
		zap.Int("names", len(byName)),
		zap.Int("aliases", len(byAlias)))
	return nil
}

// FindByNameOrAlias sucht ein Salz per exaktem (case-insensitivem) Namens-
// oder Aliastreffer. Kein Treffer ist ein gültiges negatives Ergebnis,
// kein Fehler: der zweite Rückgabewert ist dann nil.
func (r *AliasResolver) FindByNameOrAlias(text string) (*models.Salt, error) {
	key := NormalizeName(text)
	if key == "" {
		return nil, nil
	}

	r.mu.RLock()
	indexed := r.byName != nil
	id, ok := r.byName[key]
	if !ok {
		id, ok = r.byAlias[key]
	}
	r.mu.RUnlock()

	if indexed {
		if !ok {
			return nil, nil
		}
		var salt models.Salt
		if err := r.db.First(&salt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &salt, nil
	}

	// Ohne Index: exakter Namensvergleich per Query, danach linearer
	// Alias-Scan über die gesamte Registry.
	var salt models.Salt
	err := r.db.Where("lower(name) = ?", key).First(&salt).Error
	if err == nil {
		return &salt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var salts []models.Salt
	if err := r.db.Find(&salts).Error; err != nil {
		return nil, err
	}
	for i := range salts {
		for _, alias := range salts[i].Aliases {
			if NormalizeName(alias) == key {
				return &salts[i], nil
			}
		}
	}
	return nil, nil
}

// SearchOptions steuern die Salz-Suche.
type SearchOptions struct {
	Category       string
	HighRiskOnly   bool
	IncludeAliases bool
	Limit          int
}

// SaltSearchResult ist ein Suchtreffer samt Verlinkungszahl; MatchedAlias
// ist gesetzt, wenn der Treffer über einen Alias zustande kam.
type SaltSearchResult struct {
	models.Salt
	LinkCount    int64  `json:"link_count"`
	MatchedAlias string `json:"matched_alias,omitempty"`
}

// Search liefert Salze, deren Name den Suchbegriff enthält (Primärmenge,
// nach Name sortiert), und hängt bei IncludeAliases Salze an, die nur über
// einen Alias matchen (Sekundärmenge, ohne Duplikate). Kategorie- und
// HighRisk-Filter greifen vor dem Mergen, das Limit erst danach.
func (r *AliasResolver) Search(query string, opts SearchOptions) ([]SaltSearchResult, error) {
	q := NormalizeName(query)

	filtered := func() *gorm.DB {
		tx := r.db.Model(&models.Salt{})
		if opts.Category != "" {
			tx = tx.Where("category = ?", opts.Category)
		}
		if opts.HighRiskOnly {
			tx = tx.Where("high_risk = ?", true)
		}
		return tx
	}

	var primary []models.Salt
	if err := filtered().
		Where(`lower(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(q)+"%").
		Order("name asc").
		Find(&primary).Error; err != nil {
		return nil, err
	}

	results := make([]SaltSearchResult, 0, len(primary))
	seen := make(map[uint]bool, len(primary))
	for _, salt := range primary {
		results = append(results, SaltSearchResult{Salt: salt})
		seen[salt.ID] = true
	}

	if opts.IncludeAliases {
		var all []models.Salt
		if err := filtered().Order("name asc").Find(&all).Error; err != nil {
			return nil, err
		}
		for _, salt := range all {
			if seen[salt.ID] {
				continue
			}
			for _, alias := range salt.Aliases {
				if strings.Contains(NormalizeName(alias), q) {
					results = append(results, SaltSearchResult{Salt: salt, MatchedAlias: alias})
					seen[salt.ID] = true
					break
				}
			}
		}
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	if err := r.attachLinkCounts(results); err != nil {
		return nil, err
	}
	return results, nil
}

// likeEscaper entschärft LIKE-Metazeichen; Suchbegriffe matchen immer
// literal, nie als Wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// attachLinkCounts annotiert Treffer mit der Anzahl verknüpfter Medikamente.
func (r *AliasResolver) attachLinkCounts(results []SaltSearchResult) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.ID)
	}

	type linkCount struct {
		SaltID uint
		Count  int64
	}
	var counts []linkCount
	if err := r.db.Model(&models.DrugSaltLink{}).
		Select("salt_id, count(*) as count").
		Where("salt_id IN ?", ids).
		Group("salt_id").
		Scan(&counts).Error; err != nil {
		return err
	}

	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.SaltID] = c.Count
	}
	for i := range results {
		results[i].LinkCount = byID[results[i].ID]
	}
	return nil
}
