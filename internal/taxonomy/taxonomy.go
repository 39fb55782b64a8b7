// Package taxonomy maps between flat annotation field names and the
// named groups of the metadata model, and encodes the tier/group pair
// as an annotation namespace string. The remote store only understands
// flat key/value lists tagged with an opaque namespace, so this table
// is the sole mechanism for reconstructing structure on download. Both
// directions share the constants below, keeping write and read paths in
// lockstep.
package taxonomy

import (
	"regexp"
	"strings"

	"github.com/screendata/mihcsme/internal/model"
)

// Tier names as they appear in namespace strings. These are identical
// to the flat-dictionary keys so all representations agree.
const (
	TierInvestigation = model.KeyInvestigation
	TierStudy         = model.KeyStudy
	TierAssay         = model.KeyAssay
)

// GroupMetadata is the catch-all group for field names the table does
// not recognize. Falling back instead of dropping keeps the downward
// mapping total: no field is ever lost.
const GroupMetadata = "Metadata"

// fieldGroups assigns known field names to groups. The table is
// configuration data in spirit: it was seeded from real exported
// annotation sets and extends as new field names show up in the wild.
//
//nolint:gochecknoglobals // Static classification table shared by both mapping directions
var fieldGroups = map[string]string{
	// DataOwner
	"First Name":     "DataOwner",
	"Last Name":      "DataOwner",
	"E-Mail Address": "DataOwner",
	"Institution":    "DataOwner",
	"Department":     "DataOwner",

	// InvestigationInfo
	"Project ID":                "InvestigationInfo",
	"Investigation Identifier":  "InvestigationInfo",
	"Investigation Title":       "InvestigationInfo",
	"Investigation Description": "InvestigationInfo",

	// Study
	"Study Title":       "Study",
	"Study internal ID": "Study",
	"Study Identifier":  "Study",
	"Study Description": "Study",

	// Biosample
	"Biosample Taxon":             "Biosample",
	"Biosample Organism":          "Biosample",
	"Biosample Description":       "Biosample",
	"Cell lines storage location": "Biosample",

	// Library
	"Library File Name":   "Library",
	"Library Type":        "Library",
	"Library Description": "Library",

	// Protocols
	"HCS library protocol": "Protocols",
	"Growth protocol":      "Protocols",
	"Treatment protocol":   "Protocols",

	// Plate
	"Plate type":       "Plate",
	"Plate well count": "Plate",
	"Plate coating":    "Plate",

	// Assay
	"Assay Title":       "Assay",
	"Assay internal ID": "Assay",
	"Assay Identifier":  "Assay",
	"Assay Description": "Assay",
	"Number of plates":  "Assay",

	// AssayComponent
	"Imaging protocol":            "AssayComponent",
	"Sample preparation protocol": "AssayComponent",
	"Staining protocol":           "AssayComponent",

	// ImageData
	"Image number of pixelsX":  "ImageData",
	"Image number of pixelsY":  "ImageData",
	"Image number of channels": "ImageData",
	"Image sites per well":     "ImageData",
	"Image format":             "ImageData",

	// ImageAcquisition
	"Microscope id":        "ImageAcquisition",
	"Objective":            "ImageAcquisition",
	"Acquisition software": "ImageAcquisition",
}

// Pattern rules for field families that carry an index or free suffix.
//
//nolint:gochecknoglobals // Static classification table shared by both mapping directions
var patternGroups = []struct {
	re    *regexp.Regexp
	group string
}{
	// ORCID of the primary investigator belongs with the owner block.
	{regexp.MustCompile(`^ORCID\s+investigator$`), "DataOwner"},
	// Indexed collaborator ORCIDs, e.g. "ORCID  Data Collaborator_0".
	{regexp.MustCompile(`^ORCID\s+Data Collaborator_\d+$`), "DataCollaborator"},
	// Per-channel acquisition descriptors, e.g. "Channel 1 visualization
	// method" or "Channel Transmission id".
	{regexp.MustCompile(`^Channel\s+`), "Specimen"},
}

// GroupFor returns the group a single field name belongs to. Every
// field name resolves to exactly one group; unrecognized names land in
// GroupMetadata.
func GroupFor(field string) string {
	if group, ok := fieldGroups[field]; ok {
		return group
	}
	for _, rule := range patternGroups {
		if rule.re.MatchString(field) {
			return rule.group
		}
	}
	return GroupMetadata
}

// GroupFields folds a flat field/value mapping, already scoped to one
// tier, into grouped form. The mapping is total: the output always
// contains every input field.
func GroupFields(flat map[string]model.Value) model.GroupedFields {
	grouped := model.GroupedFields{}
	for field, value := range flat {
		grouped.Set(GroupFor(field), field, value)
	}
	return grouped
}

// Namespace encodes a tier/group pair as the annotation namespace
// written to the remote store: {base}/{Tier}/{Group}.
func Namespace(base, tier, group string) string {
	return base + "/" + tier + "/" + group
}

// ConditionsNamespace is the fixed namespace for per-well condition
// annotations: {base}/AssayConditions.
func ConditionsNamespace(base string) string {
	return base + "/" + model.KeyConditions
}

// LegacyTier recognizes the two-segment namespaces ({base}/{Tier})
// written by older exports that stored a tier's fields flat, without a
// group segment. Fields read from such annotations are regrouped with
// GroupFields.
func LegacyTier(base, ns string) (tier string, ok bool) {
	rest, found := strings.CutPrefix(ns, base+"/")
	if !found || strings.Contains(rest, "/") {
		return "", false
	}
	switch rest {
	case TierInvestigation, TierStudy, TierAssay:
		return rest, true
	default:
		return "", false
	}
}

// SplitNamespace decodes a namespace produced by Namespace back into
// its tier and group. It reports false for namespaces outside the
// given base or without the three-segment shape.
func SplitNamespace(base, ns string) (tier, group string, ok bool) {
	rest, found := strings.CutPrefix(ns, base+"/")
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	switch parts[0] {
	case TierInvestigation, TierStudy, TierAssay:
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}
