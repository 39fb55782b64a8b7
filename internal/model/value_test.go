package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Value
	}{
		{"nil stays nil", nil, nil},
		{"empty string becomes nil", "", nil},
		{"blank string becomes nil", "   ", nil},
		{"string passes through", "DMSO", "DMSO"},
		{"float passes through", 2.5, 2.5},
		{"int widens to float", 2048, float64(2048)},
		{"int64 widens to float", int64(7), float64(7)},
		{"bool becomes text", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeValue(tt.input))
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"nil renders empty", nil, ""},
		{"string passes through", "HeLa", "HeLa"},
		{"whole float drops decimal", float64(2048), "2048"},
		{"fractional float keeps digits", 0.1, "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValueString(tt.input))
		})
	}
}
