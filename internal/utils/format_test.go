package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected string
	}{
		{"whole amount", "200", "200,00 lei"},
		{"cents", "247.3", "247,30 lei"},
		{"rounds to two places", "0.905", "0,91 lei"},
		{"thousands grouping", "1234.56", "1.234,56 lei"},
		{"zero", "0", "0,00 lei"},
		{"beyond float precision", "12345678901234.565", "12.345.678.901.234,57 lei"},
		{"negative cents", "-0.5", "-0,50 lei"},
		{"rounds to zero", "-0.001", "0,00 lei"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCurrency(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestFormatDiscount(t *testing.T) {
	assert.Equal(t, "-20,00 lei", FormatDiscount(decimal.NewFromInt(20)))
	assert.Equal(t, "-20,00 lei", FormatDiscount(decimal.NewFromInt(-20)))
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2025-03-15", "15 mar. 2025"},
		{"2025-09-01T20:00:00Z", "1 sept. 2025"},
		{"2025-12-31 19:30:00", "31 dec. 2025"},
		{"", ""},
		{"soon", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDate(tt.input))
		})
	}
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "15:00", FormatCountdown(15*time.Minute))
	assert.Equal(t, "04:05", FormatCountdown(4*time.Minute+5*time.Second+900*time.Millisecond))
	assert.Equal(t, "00:00", FormatCountdown(0))
	assert.Equal(t, "00:00", FormatCountdown(-3*time.Second))
}

func TestGeneratePassword(t *testing.T) {
	password, err := GeneratePassword(AccountPasswordLength)
	require.NoError(t, err)
	assert.Len(t, password, AccountPasswordLength)
	for _, r := range password {
		assert.True(t, strings.ContainsRune(passwordAlphabet, r), "unexpected character %q", r)
	}

	other, err := GeneratePassword(AccountPasswordLength)
	require.NoError(t, err)
	assert.NotEqual(t, password, other)

	_, err = GeneratePassword(0)
	assert.Error(t, err)
}
