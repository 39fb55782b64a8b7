package model

import (
	"strings"

	"github.com/screendata/mihcsme/internal/errors"
)

// Top-level keys of the flat dictionary form. These double as the tier
// segment of annotation namespaces and as the required sheet names of a
// MIHCSME workbook, so all three representations stay aligned.
const (
	KeyInvestigation = "InvestigationInformation"
	KeyStudy         = "StudyInformation"
	KeyAssay         = "AssayInformation"
	KeyConditions    = "AssayConditions"
)

// Column names required in the conditions table.
const (
	ColumnPlate = "Plate"
	ColumnWell  = "Well"
)

// ToFlatDict converts the aggregate into the flat dictionary form
// consumed by the upload path:
//
//	{"InvestigationInformation": {group: {key: value}},
//	 "StudyInformation": ..., "AssayInformation": ...,
//	 "AssayConditions": [{"Plate":..., "Well":..., <fields>...}, ...],
//	 "_<refname>": {key: value}, ...}
//
// Tiers that are absent produce no entry.
func (m *Metadata) ToFlatDict() map[string]any {
	result := map[string]any{}

	if m.Investigation != nil {
		result[KeyInvestigation] = m.Investigation.Groups
	}
	if m.Study != nil {
		result[KeyStudy] = m.Study.Groups
	}
	if m.Assay != nil {
		result[KeyAssay] = m.Assay.Groups
	}

	if len(m.Conditions) > 0 {
		rows := make([]map[string]any, 0, len(m.Conditions))
		for _, cond := range m.Conditions {
			row := map[string]any{
				ColumnPlate: cond.Plate,
				ColumnWell:  cond.Well,
			}
			for k, v := range cond.Conditions {
				row[k] = v
			}
			rows = append(rows, row)
		}
		result[KeyConditions] = rows
	}

	for _, ref := range m.ReferenceTables {
		result[ref.Name] = ref.Data
	}

	return result
}

// FromFlatDict rebuilds a Metadata aggregate from the flat dictionary
// form. Well labels are re-normalized, so the result is canonical even
// when the input was not. Unknown top-level keys that do not carry the
// reference prefix are ignored.
func FromFlatDict(data map[string]any) (*Metadata, error) {
	m := &Metadata{}

	if groups, ok := data[KeyInvestigation]; ok {
		m.Investigation = &InvestigationInfo{Groups: toGroupedFields(groups)}
	}
	if groups, ok := data[KeyStudy]; ok {
		m.Study = &StudyInfo{Groups: toGroupedFields(groups)}
	}
	if groups, ok := data[KeyAssay]; ok {
		m.Assay = &AssayInfo{Groups: toGroupedFields(groups)}
	}

	if raw, ok := data[KeyConditions]; ok {
		rows, err := toConditionRows(raw)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			plate, _ := row[ColumnPlate].(string)
			well, _ := row[ColumnWell].(string)
			conditions := map[string]Value{}
			for k, v := range row {
				if k == ColumnPlate || k == ColumnWell {
					continue
				}
				conditions[k] = NormalizeValue(v)
			}
			cond, err := NewWellCondition(plate, well, conditions)
			if err != nil {
				return nil, err
			}
			m.Conditions = append(m.Conditions, cond)
		}
	}

	for key, value := range data {
		if !strings.HasPrefix(key, ReferencePrefix) {
			continue
		}
		entries, ok := toValueMap(value)
		if !ok {
			continue
		}
		ref, err := NewReferenceTable(key, entries)
		if err != nil {
			return nil, err
		}
		m.ReferenceTables = append(m.ReferenceTables, ref)
	}

	return m, nil
}

// toGroupedFields coerces either a GroupedFields or the generic
// map shapes produced by JSON decoding into GroupedFields.
func toGroupedFields(raw any) GroupedFields {
	switch v := raw.(type) {
	case GroupedFields:
		return v
	case map[string]map[string]Value:
		return GroupedFields(v)
	case map[string]any:
		groups := GroupedFields{}
		for name, fields := range v {
			entries, ok := toValueMap(fields)
			if !ok {
				continue
			}
			groups[name] = entries
		}
		return groups
	default:
		return GroupedFields{}
	}
}

func toValueMap(raw any) (map[string]Value, bool) {
	switch v := raw.(type) {
	case map[string]Value:
		out := make(map[string]Value, len(v))
		for k, val := range v {
			out[k] = NormalizeValue(val)
		}
		return out, true
	default:
		return nil, false
	}
}

func toConditionRows(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, errors.Validationf("%s entries must be objects, got %T", KeyConditions, item)
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return nil, errors.Validationf("%s must be a list, got %T", KeyConditions, raw)
	}
}
