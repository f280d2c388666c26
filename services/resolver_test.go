package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DikshantJangra/hoperxpharma-sub005/models"
)

func TestFindByNameOrAlias(t *testing.T) {
	registry, resolver, _ := newTestRegistry(t)
	para := mustCreateSalt(t, registry, "Paracetamol", "Analgesic")
	_, err := registry.AddAlias(para.ID, "Acetaminophen")
	require.NoError(t, err)

	salt, err := resolver.FindByNameOrAlias("  PARACETAMOL ")
	require.NoError(t, err)
	require.NotNil(t, salt)
	assert.Equal(t, para.ID, salt.ID)

	salt, err = resolver.FindByNameOrAlias("acetaminophen")
	require.NoError(t, err)
	require.NotNil(t, salt)
	assert.Equal(t, para.ID, salt.ID)
}

func TestFindByNameOrAliasNoMatchIsNotAnError(t *testing.T) {
	_, resolver, _ := newTestRegistry(t)

	salt, err := resolver.FindByNameOrAlias("Unobtainium")
	require.NoError(t, err)
	assert.Nil(t, salt)

	salt, err = resolver.FindByNameOrAlias("   ")
	require.NoError(t, err)
	assert.Nil(t, salt)
}

func TestFindByNameOrAliasNamePriority(t *testing.T) {
	// Altbestand kann einen Namen tragen, der zugleich Alias eines anderen
	// Salzes ist; der Namenstreffer gewinnt immer.
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Salt{Name: "Paracetamol", Aliases: []string{}}).Error)
	require.NoError(t, db.Create(&models.Salt{Name: "Acetaminophen", Aliases: []string{"Paracetamol"}}).Error)

	resolver := NewAliasResolver(db, zap.NewNop())
	require.NoError(t, resolver.Rebuild())

	salt, err := resolver.FindByNameOrAlias("paracetamol")
	require.NoError(t, err)
	require.NotNil(t, salt)
	assert.Equal(t, "Paracetamol", salt.Name)
}

func TestFindByNameOrAliasWithoutIndex(t *testing.T) {
	// Vor dem ersten Rebuild fällt der Resolver auf Queries zurück.
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Salt{Name: "Paracetamol", Aliases: []string{"Acetaminophen"}}).Error)

	resolver := NewAliasResolver(db, zap.NewNop())

	salt, err := resolver.FindByNameOrAlias("PARACETAMOL")
	require.NoError(t, err)
	require.NotNil(t, salt)

	salt, err = resolver.FindByNameOrAlias("acetaminophen")
	require.NoError(t, err)
	require.NotNil(t, salt)
	assert.Equal(t, "Paracetamol", salt.Name)
}

func TestSearchMergesNameAndAliasMatches(t *testing.T) {
	registry, resolver, _ := newTestRegistry(t)
	aceta := mustCreateSalt(t, registry, "Acetaminophen", "Analgesic")
	_, err := registry.AddAlias(aceta.ID, "Paracetamol")
	require.NoError(t, err)
	mustCreateSalt(t, registry, "Paracetamol IV", "Analgesic")
	mustCreateSalt(t, registry, "Ibuprofen", "Analgesic")

	results, err := resolver.Search("para", SearchOptions{IncludeAliases: true, Limit: 50})
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Namenstreffer zuerst, Aliastreffer dahinter
	assert.Equal(t, "Paracetamol IV", results[0].Name)
	assert.Empty(t, results[0].MatchedAlias)
	assert.Equal(t, "Acetaminophen", results[1].Name)
	assert.Equal(t, "Paracetamol", results[1].MatchedAlias)
}

func TestSearchWithoutAliases(t *testing.T) {
	registry, resolver, _ := newTestRegistry(t)
	aceta := mustCreateSalt(t, registry, "Acetaminophen", "Analgesic")
	_, err := registry.AddAlias(aceta.ID, "Paracetamol")
	require.NoError(t, err)

	results, err := resolver.Search("para", SearchOptions{IncludeAliases: false, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNoDuplicateWhenNameAndAliasMatch(t *testing.T) {
	registry, resolver, _ := newTestRegistry(t)
	salt := mustCreateSalt(t, registry, "Paracetamol", "Analgesic")
	_, err := registry.AddAlias(salt.ID, "Paracetamolum")
	require.NoError(t, err)

	results, err := resolver.Search("paracetamol", SearchOptions{IncludeAliases: true, Limit: 50})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].MatchedAlias)
}

func TestSearchFiltersApplyBeforeMerge(t *testing.T) {
	registry, resolver, _ := newTestRegistry(t)
	aceta := mustCreateSalt(t, registry, "Acetaminophen", "Analgesic")
	_, err := registry.AddAlias(aceta.ID, "Paracetamol")
	require.NoError(t, err)
	mustCreateSalt(t, registry, "Paracetamol Sodium", "Injectable")

	results, err := resolver.Search("para", SearchOptions{
		Category:       "Injectable",
		IncludeAliases: true,
		Limit:          50,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Paracetamol Sodium", results[0].Name)
}

func TestSearchLimitAppliesAfterMerge(t *testing.T) {
	registry, resolver, _ := newTestRegistry(t)
	aceta := mustCreateSalt(t, registry, "Acetaminophen", "Analgesic")
	_, err := registry.AddAlias(aceta.ID, "Paracetamol")
	require.NoError(t, err)
	mustCreateSalt(t, registry, "Paracetamol A", "Analgesic")
	mustCreateSalt(t, registry, "Paracetamol B", "Analgesic")

	results, err := resolver.Search("para", SearchOptions{IncludeAliases: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Paracetamol A", results[0].Name)
	assert.Equal(t, "Paracetamol B", results[1].Name)
}

func TestSearchTreatsWildcardCharactersLiterally(t *testing.T) {
	registry, resolver, _ := newTestRegistry(t)
	mustCreateSalt(t, registry, "Paracetamol", "Analgesic")
	mustCreateSalt(t, registry, "Dextrose 5%", "Fluid")
	salt := mustCreateSalt(t, registry, "Glucose", "Fluid")
	_, err := registry.AddAlias(salt.ID, "Dextrose 5% w/v")
	require.NoError(t, err)

	// "%" darf kein LIKE-Wildcard sein: "5%" matcht nicht "Paracetamol"
	results, err := resolver.Search("5%", SearchOptions{IncludeAliases: true, Limit: 50})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Dextrose 5%", results[0].Name)
	assert.Equal(t, "Glucose", results[1].Name)
	assert.Equal(t, "Dextrose 5% w/v", results[1].MatchedAlias)

	// "_" matcht kein beliebiges Zeichen
	results, err = resolver.Search("para_etamol", SearchOptions{IncludeAliases: true, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchAttachesLinkCounts(t *testing.T) {
	registry, resolver, db := newTestRegistry(t)
	salt := mustCreateSalt(t, registry, "Paracetamol", "Analgesic")
	drugA := createDrug(t, db, 1, "Dolo 650", "Tablet", models.IngestionActive)
	drugB := createDrug(t, db, 1, "Calpol 500", "Tablet", models.IngestionActive)

	composition := NewComposition(db, zap.NewNop())
	_, err := composition.LinkSalt(drugA.ID, LinkInput{SaltID: salt.ID, StrengthValue: 650, StrengthUnit: "mg"})
	require.NoError(t, err)
	_, err = composition.LinkSalt(drugB.ID, LinkInput{SaltID: salt.ID, StrengthValue: 500, StrengthUnit: "mg"})
	require.NoError(t, err)

	results, err := resolver.Search("paracetamol", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.EqualValues(t, 2, results[0].LinkCount)
}
