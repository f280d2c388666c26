package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Paracetamol", "paracetamol"},
		{"  PARACETAMOL  ", "paracetamol"},
		{"Amoxicillin   +  Clavulanate", "amoxicillin + clavulanate"},
		{"Diclofenac\tSodium", "diclofenac sodium"},
		{"ﬂucloxacillin", "flucloxacillin"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeName(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeUnit(t *testing.T) {
	assert.Equal(t, "mg", NormalizeUnit(" Mg "))
	assert.Equal(t, "iu", NormalizeUnit("IU"))
	assert.Equal(t, "", NormalizeUnit("   "))
}
