package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankAlternativesPriority(t *testing.T) {
	alternatives := []Alternative{
		{DrugID: 1, StrengthMatch: StrengthDifferent, MRP: 5, TotalStock: 100},
		{DrugID: 2, StrengthMatch: StrengthExact, MRP: 30, TotalStock: 2},
		{DrugID: 3, StrengthMatch: StrengthExact, MRP: 10, TotalStock: 7},
	}

	rankAlternatives(alternatives)

	// exakte Stärke vor Preis, Preis vor Bestand
	assert.Equal(t, uint(3), alternatives[0].DrugID)
	assert.Equal(t, uint(2), alternatives[1].DrugID)
	assert.Equal(t, uint(1), alternatives[2].DrugID)
}

func TestRankAlternativesPriceTieFallsBackToStock(t *testing.T) {
	alternatives := []Alternative{
		{DrugID: 1, StrengthMatch: StrengthExact, MRP: 10.004, TotalStock: 3},
		{DrugID: 2, StrengthMatch: StrengthExact, MRP: 10.0, TotalStock: 50},
	}

	rankAlternatives(alternatives)

	// Preisdifferenz unterhalb des Epsilons entscheidet nicht, Bestand schon
	assert.Equal(t, uint(2), alternatives[0].DrugID)
}

func TestRankAlternativesIsStable(t *testing.T) {
	alternatives := []Alternative{
		{DrugID: 1, StrengthMatch: StrengthExact, MRP: 10, TotalStock: 5},
		{DrugID: 2, StrengthMatch: StrengthExact, MRP: 10, TotalStock: 5},
		{DrugID: 3, StrengthMatch: StrengthExact, MRP: 10, TotalStock: 5},
	}

	rankAlternatives(alternatives)

	assert.Equal(t, uint(1), alternatives[0].DrugID)
	assert.Equal(t, uint(2), alternatives[1].DrugID)
	assert.Equal(t, uint(3), alternatives[2].DrugID)
}
