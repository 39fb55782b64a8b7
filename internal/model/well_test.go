package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screendata/mihcsme/internal/errors"
)

func TestNormalizeWell(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a1", "A01"},
		{"A1", "A01"},
		{"A01", "A01"},
		{"b12", "B12"},
		{"p48", "P48"},
		{"  c3  ", "C03"},
		{"H08", "H08"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := NormalizeWell(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeWell_Idempotent(t *testing.T) {
	inputs := []string{"a1", "A01", "p48", "b6", "B06"}
	for _, input := range inputs {
		once, err := NormalizeWell(input)
		require.NoError(t, err)
		twice, err := NormalizeWell(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeWell_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"row letter out of range", "Z1", "invalid row letter"},
		{"row letter below range", "11", "invalid row letter"},
		{"column too large", "A50", "invalid column number"},
		{"column zero", "A0", "invalid column number"},
		{"non-numeric column", "Invalid", "invalid well format"},
		{"too short", "A", "invalid well format"},
		{"empty", "", "invalid well format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeWell(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestWellFromIndices(t *testing.T) {
	tests := []struct {
		row, col int
		expected string
	}{
		{0, 0, "A01"},
		{1, 5, "B06"},
		{15, 47, "P48"},
	}

	for _, tt := range tests {
		result, err := WellFromIndices(tt.row, tt.col)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, result)
	}
}

func TestWellFromIndices_OutOfRange(t *testing.T) {
	_, err := WellFromIndices(16, 0)
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = WellFromIndices(0, 48)
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = WellFromIndices(-1, 0)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestNewWellCondition(t *testing.T) {
	cond, err := NewWellCondition("Plate1", "a1", map[string]Value{"Compound": "DMSO"})
	require.NoError(t, err)
	assert.Equal(t, "Plate1", cond.Plate)
	assert.Equal(t, "A01", cond.Well)
	assert.Equal(t, "DMSO", cond.Conditions["Compound"])

	// nil conditions become an empty map, not nil
	cond, err = NewWellCondition("Plate1", "B2", nil)
	require.NoError(t, err)
	assert.NotNil(t, cond.Conditions)

	_, err = NewWellCondition("Plate1", "Z1", nil)
	assert.ErrorIs(t, err, errors.ErrValidation)
}
