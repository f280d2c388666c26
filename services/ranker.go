package services

import (
	"math"
	"sort"
)

// priceEpsilon: Kandidaten innerhalb von 0.01 Währungseinheiten gelten als
// preisgleich, damit Float-Jitter die Reihenfolge nicht entscheidet.
const priceEpsilon = 0.01

// rankAlternatives sortiert Kandidaten nach der festen Abgabe-Priorität:
// erst exakte Stärke, dann aufsteigender Preis, dann absteigender Bestand.
// Die Reihenfolge ist deterministisch für eine feste Kandidatenmenge.
func rankAlternatives(alternatives []Alternative) {
	sort.SliceStable(alternatives, func(i, j int) bool {
		a, b := alternatives[i], alternatives[j]

		if a.StrengthMatch != b.StrengthMatch {
			return a.StrengthMatch == StrengthExact
		}

		if math.Abs(a.MRP-b.MRP) > priceEpsilon {
			return a.MRP < b.MRP
		}

		return a.TotalStock > b.TotalStock
	})
}
