// Package model holds the validated in-memory representation of MIHCSME
// experiment metadata: three tiers of grouped key/value fields
// (Investigation, Study, Assay), per-well conditions, and auxiliary
// reference tables. A Metadata aggregate is built once per parse or
// download and treated as read-only afterwards; conversions produce new
// representations rather than mutating in place.
package model

import (
	"strings"

	"github.com/screendata/mihcsme/internal/errors"
)

// ReferencePrefix marks reference sheets and reference entries in the
// flat dictionary form (e.g. "_Organisms").
const ReferencePrefix = "_"

// GroupedFields is a two-level mapping of group name to field name to
// value. Group membership and field presence survive every round-trip;
// insertion order within a group carries no meaning.
type GroupedFields map[string]map[string]Value

// Set stores a field value, creating the group on first use.
func (g GroupedFields) Set(group, field string, value Value) {
	if g[group] == nil {
		g[group] = map[string]Value{}
	}
	g[group][field] = value
}

// InvestigationInfo is investigation-tier metadata organized by
// annotation groups.
type InvestigationInfo struct {
	Groups GroupedFields `json:"groups"`
}

// StudyInfo is study-tier metadata organized by annotation groups.
type StudyInfo struct {
	Groups GroupedFields `json:"groups"`
}

// AssayInfo is assay-tier metadata organized by annotation groups.
type AssayInfo struct {
	Groups GroupedFields `json:"groups"`
}

// ReferenceTable is an auxiliary lookup table, such as an organism name
// dictionary, that travels alongside but outside the three tiers.
type ReferenceTable struct {
	Name string           `json:"name"`
	Data map[string]Value `json:"data"`
}

// NewReferenceTable builds a ReferenceTable, enforcing the reserved
// name prefix.
func NewReferenceTable(name string, data map[string]Value) (ReferenceTable, error) {
	if !strings.HasPrefix(name, ReferencePrefix) {
		return ReferenceTable{}, errors.Validationf("reference table name must start with %q: %s", ReferencePrefix, name)
	}
	if data == nil {
		data = map[string]Value{}
	}
	return ReferenceTable{Name: name, Data: data}, nil
}

// Metadata is the root aggregate. Each tier is optional, and condition
// rows may name plates that appear nowhere else: partial metadata is a
// valid state.
type Metadata struct {
	Investigation   *InvestigationInfo `json:"investigation_information,omitempty"`
	Study           *StudyInfo         `json:"study_information,omitempty"`
	Assay           *AssayInfo         `json:"assay_information,omitempty"`
	Conditions      []WellCondition    `json:"assay_conditions,omitempty"`
	ReferenceTables []ReferenceTable   `json:"reference_tables,omitempty"`
}
