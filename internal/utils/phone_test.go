package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		country string
		want    string
	}{
		{
			name:    "Ghana local with trunk zero",
			raw:     "0241234567",
			country: "GH",
			want:    "+233241234567",
		},
		{
			name:    "Ghana local without trunk zero",
			raw:     "241234567",
			country: "GH",
			want:    "+233241234567",
		},
		{
			name:    "Ghana already canonical",
			raw:     "+233241234567",
			country: "GH",
			want:    "+233241234567",
		},
		{
			name:    "Ghana with calling code no plus",
			raw:     "233241234567",
			country: "GH",
			want:    "+233241234567",
		},
		{
			name:    "Nigeria local with trunk zero",
			raw:     "08031234567",
			country: "NG",
			want:    "+2348031234567",
		},
		{
			name:    "Nigeria already canonical",
			raw:     "+2348031234567",
			country: "NG",
			want:    "+2348031234567",
		},
		{
			name:    "spaces and dashes stripped",
			raw:     "024-123 4567",
			country: "GH",
			want:    "+233241234567",
		},
		{
			name:    "lowercase country",
			raw:     "0241234567",
			country: "gh",
			want:    "+233241234567",
		},
		{
			name:    "unknown country keeps digits",
			raw:     "0241234567",
			country: "ZZ",
			want:    "+0241234567",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.raw, tt.country))
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	once := NormalizePhone("0551234567", "GH")
	twice := NormalizePhone(once, "GH")
	assert.Equal(t, once, twice)
}

func TestNormalizePhoneVariantsAgree(t *testing.T) {
	withZero := NormalizePhone("0241234567", "GH")
	withoutZero := NormalizePhone("241234567", "GH")
	assert.Equal(t, withZero, withoutZero)
}

func TestCallingCode(t *testing.T) {
	code, ok := CallingCode("GH")
	assert.True(t, ok)
	assert.Equal(t, "233", code)

	code, ok = CallingCode("NG")
	assert.True(t, ok)
	assert.Equal(t, "234", code)

	_, ok = CallingCode("ZZ")
	assert.False(t, ok)
}
