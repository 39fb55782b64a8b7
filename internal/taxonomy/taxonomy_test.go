package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screendata/mihcsme/internal/model"
)

func TestGroupFields_Investigation(t *testing.T) {
	flat := map[string]model.Value{
		"First Name":          "John",
		"Last Name":           "Doe",
		"E-Mail Address":      "john@example.com",
		"ORCID investigator":  "https://orcid.org/0000-0002-3704-3675",
		"Project ID":          "EuTOX",
		"Investigation Title": "Test Investigation",
	}

	result := GroupFields(flat)

	require.Contains(t, result, "DataOwner")
	assert.Equal(t, "John", result["DataOwner"]["First Name"])
	assert.Equal(t, "Doe", result["DataOwner"]["Last Name"])
	assert.Equal(t, "john@example.com", result["DataOwner"]["E-Mail Address"])
	assert.Equal(t, "https://orcid.org/0000-0002-3704-3675", result["DataOwner"]["ORCID investigator"])

	require.Contains(t, result, "InvestigationInfo")
	assert.Equal(t, "EuTOX", result["InvestigationInfo"]["Project ID"])
	assert.Equal(t, "Test Investigation", result["InvestigationInfo"]["Investigation Title"])
}

func TestGroupFields_Study(t *testing.T) {
	flat := map[string]model.Value{
		"Study Title":          "Test Study",
		"Study internal ID":    "STD-001",
		"Biosample Taxon":      "NCBITAXON:9606",
		"Biosample Organism":   "Human",
		"Library File Name":    "library.csv",
		"Library Type":         "siRNA",
		"HCS library protocol": "https://protocols.io/...",
		"Plate type":           "uclear",
	}

	result := GroupFields(flat)

	assert.Equal(t, "Test Study", result["Study"]["Study Title"])
	assert.Equal(t, "STD-001", result["Study"]["Study internal ID"])
	assert.Equal(t, "NCBITAXON:9606", result["Biosample"]["Biosample Taxon"])
	assert.Equal(t, "Human", result["Biosample"]["Biosample Organism"])
	assert.Equal(t, "library.csv", result["Library"]["Library File Name"])
	assert.Equal(t, "https://protocols.io/...", result["Protocols"]["HCS library protocol"])
	assert.Equal(t, "uclear", result["Plate"]["Plate type"])
}

func TestGroupFields_Assay(t *testing.T) {
	flat := map[string]model.Value{
		"Assay Title":                    "Test Assay",
		"Assay internal ID":              "ASY-001",
		"Number of plates":               "10",
		"Imaging protocol":               "https://protocols.io/imaging",
		"Sample preparation protocol":    "Fixed cells",
		"Cell lines storage location":    "Lab freezer",
		"Image number of pixelsX":        "2048",
		"Image number of pixelsY":        "2048",
		"Image number of channels":       "4",
		"Image sites per well":           "9",
		"Microscope id":                  "https://microscope.example.com",
		"Channel Transmission id":        "1",
		"Channel 1 visualization method": "Fluorescence",
	}

	result := GroupFields(flat)

	assert.Equal(t, "Test Assay", result["Assay"]["Assay Title"])
	assert.Equal(t, "10", result["Assay"]["Number of plates"])
	assert.Equal(t, "https://protocols.io/imaging", result["AssayComponent"]["Imaging protocol"])
	assert.Equal(t, "Fixed cells", result["AssayComponent"]["Sample preparation protocol"])
	assert.Equal(t, "Lab freezer", result["Biosample"]["Cell lines storage location"])
	assert.Equal(t, "2048", result["ImageData"]["Image number of pixelsX"])
	assert.Equal(t, "9", result["ImageData"]["Image sites per well"])
	assert.Equal(t, "https://microscope.example.com", result["ImageAcquisition"]["Microscope id"])
	assert.Equal(t, "1", result["Specimen"]["Channel Transmission id"])
	assert.Equal(t, "Fluorescence", result["Specimen"]["Channel 1 visualization method"])
}

func TestGroupFields_Collaborators(t *testing.T) {
	flat := map[string]model.Value{
		"ORCID  Data Collaborator_0": "https://orcid.org/0000-0001-1111-1111",
		"ORCID  Data Collaborator_1": "https://orcid.org/0000-0002-2222-2222",
	}

	result := GroupFields(flat)

	require.Contains(t, result, "DataCollaborator")
	assert.Len(t, result["DataCollaborator"], 2)
}

func TestGroupFields_UnknownFallsBackToMetadata(t *testing.T) {
	flat := map[string]model.Value{
		"Unknown Field 1": "value1",
		"Random Key":      "value2",
	}

	result := GroupFields(flat)

	require.Contains(t, result, GroupMetadata)
	assert.Equal(t, "value1", result[GroupMetadata]["Unknown Field 1"])
	assert.Equal(t, "value2", result[GroupMetadata]["Random Key"])
}

// Totality: every field lands in exactly one group, so the grouped form
// always carries as many fields as the flat form.
func TestGroupFields_Total(t *testing.T) {
	flat := map[string]model.Value{
		"First Name":                 "A",
		"Study Title":                "B",
		"Microscope id":              "C",
		"Channel 2 stain":            "D",
		"ORCID  Data Collaborator_3": "E",
		"Completely Unknown":         "F",
	}

	result := GroupFields(flat)

	total := 0
	for _, fields := range result {
		total += len(fields)
	}
	assert.Equal(t, len(flat), total)
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "MIHCSME/InvestigationInformation/DataOwner",
		Namespace("MIHCSME", TierInvestigation, "DataOwner"))
	assert.Equal(t, "MIHCSME/AssayConditions", ConditionsNamespace("MIHCSME"))
}

func TestSplitNamespace(t *testing.T) {
	tests := []struct {
		name      string
		ns        string
		wantTier  string
		wantGroup string
		wantOK    bool
	}{
		{"investigation", "MIHCSME/InvestigationInformation/DataOwner", TierInvestigation, "DataOwner", true},
		{"study", "MIHCSME/StudyInformation/Biosample", TierStudy, "Biosample", true},
		{"assay", "MIHCSME/AssayInformation/ImageData", TierAssay, "ImageData", true},
		{"wrong base", "OTHER/StudyInformation/Biosample", "", "", false},
		{"unknown tier", "MIHCSME/Bogus/Group", "", "", false},
		{"missing group", "MIHCSME/StudyInformation", "", "", false},
		{"conditions namespace is not tier data", "MIHCSME/AssayConditions", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, group, ok := SplitNamespace("MIHCSME", tt.ns)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantGroup, group)
		})
	}
}

// Upward and downward mappings must stay in lockstep: any namespace
// built from a grouped field set splits back to the same tier/group.
func TestNamespaceRoundTrip(t *testing.T) {
	grouped := GroupFields(map[string]model.Value{
		"First Name":      "A",
		"Study Title":     "B",
		"Microscope id":   "C",
		"Anything At All": "D",
	})

	for _, tier := range []string{TierInvestigation, TierStudy, TierAssay} {
		for group := range grouped {
			ns := Namespace("MIHCSME", tier, group)
			gotTier, gotGroup, ok := SplitNamespace("MIHCSME", ns)
			require.True(t, ok, ns)
			assert.Equal(t, tier, gotTier)
			assert.Equal(t, group, gotGroup)
		}
	}
}
