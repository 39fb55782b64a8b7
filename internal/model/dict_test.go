package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_ToFlatDict(t *testing.T) {
	cond, err := NewWellCondition("Plate1", "A01", map[string]Value{"Compound": "DMSO"})
	require.NoError(t, err)

	m := &Metadata{
		Investigation: &InvestigationInfo{
			Groups: GroupedFields{"Investigation": {"ID": "INV-001"}},
		},
		Conditions: []WellCondition{cond},
	}

	dict := m.ToFlatDict()

	inv, ok := dict[KeyInvestigation].(GroupedFields)
	require.True(t, ok)
	assert.Equal(t, "INV-001", inv["Investigation"]["ID"])

	rows, ok := dict[KeyConditions].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "Plate1", rows[0]["Plate"])
	assert.Equal(t, "A01", rows[0]["Well"])
	assert.Equal(t, "DMSO", rows[0]["Compound"])

	// Absent tiers produce no entry.
	assert.NotContains(t, dict, KeyStudy)
	assert.NotContains(t, dict, KeyAssay)
}

func TestFromFlatDict(t *testing.T) {
	dict := map[string]any{
		KeyInvestigation: map[string]any{"Investigation": map[string]any{"ID": "INV-001"}},
		KeyStudy:         map[string]any{"Study": map[string]any{"Title": "Test Study"}},
		KeyAssay:         map[string]any{"Assay": map[string]any{"Type": "Microscopy"}},
		KeyConditions: []any{
			map[string]any{"Plate": "Plate1", "Well": "A01", "Compound": "DMSO"},
			map[string]any{"Plate": "Plate1", "Well": "A02", "Compound": "Drug1"},
		},
		"_Organisms": map[string]any{"Human": "Homo sapiens"},
	}

	m, err := FromFlatDict(dict)
	require.NoError(t, err)

	require.NotNil(t, m.Investigation)
	assert.Equal(t, "INV-001", m.Investigation.Groups["Investigation"]["ID"])
	require.NotNil(t, m.Study)
	require.NotNil(t, m.Assay)

	require.Len(t, m.Conditions, 2)
	assert.Equal(t, "Plate1", m.Conditions[0].Plate)
	assert.Equal(t, "A01", m.Conditions[0].Well)
	assert.Equal(t, "DMSO", m.Conditions[0].Conditions["Compound"])

	require.Len(t, m.ReferenceTables, 1)
	assert.Equal(t, "_Organisms", m.ReferenceTables[0].Name)
	assert.Equal(t, "Homo sapiens", m.ReferenceTables[0].Data["Human"])
}

func TestFromFlatDict_BadWell(t *testing.T) {
	dict := map[string]any{
		KeyConditions: []any{
			map[string]any{"Plate": "P1", "Well": "Z9"},
		},
	}
	_, err := FromFlatDict(dict)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	c1, err := NewWellCondition("P1", "A1", map[string]Value{"Drug": "Aspirin"})
	require.NoError(t, err)
	c2, err := NewWellCondition("P1", "B2", map[string]Value{"Drug": "Control"})
	require.NoError(t, err)

	ref, err := NewReferenceTable("_Organisms", map[string]Value{"Human": "Homo sapiens"})
	require.NoError(t, err)

	original := &Metadata{
		Investigation: &InvestigationInfo{
			Groups: GroupedFields{"Investigation": {"ID": "INV-001", "Title": "Test"}},
		},
		Study:           &StudyInfo{Groups: GroupedFields{"Study": {"ID": "STD-001"}}},
		Assay:           &AssayInfo{Groups: GroupedFields{"Assay": {"Type": "HCS"}}},
		Conditions:      []WellCondition{c1, c2},
		ReferenceTables: []ReferenceTable{ref},
	}

	restored, err := FromFlatDict(original.ToFlatDict())
	require.NoError(t, err)

	assert.Equal(t, original.Investigation.Groups, restored.Investigation.Groups)
	assert.Equal(t, original.Study.Groups, restored.Study.Groups)
	assert.Equal(t, original.Assay.Groups, restored.Assay.Groups)
	require.Len(t, restored.Conditions, 2)
	assert.Equal(t, "A01", restored.Conditions[0].Well) // normalized from "A1"
	assert.Equal(t, "B02", restored.Conditions[1].Well)
	assert.Equal(t, original.Conditions[0].Conditions, restored.Conditions[0].Conditions)
	assert.Equal(t, original.ReferenceTables, restored.ReferenceTables)
}

func TestNewReferenceTable_RequiresPrefix(t *testing.T) {
	_, err := NewReferenceTable("Organisms", nil)
	assert.Error(t, err)

	ref, err := NewReferenceTable("_Organisms", nil)
	require.NoError(t, err)
	assert.NotNil(t, ref.Data)
}
