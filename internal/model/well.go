package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/screendata/mihcsme/internal/errors"
)

// Microplate geometry: 16 rows (A-P) by 48 columns covers every plate
// format up to 384-well and the 1536-well quadrants in use for HCS.
const (
	minRowLetter = 'A'
	maxRowLetter = 'P'
	minColumn    = 1
	maxColumn    = 48
)

// NormalizeWell canonicalizes a free-form well label into the LetterNN
// form, e.g. "a1" -> "A01". The row letter must lie in A-P and the
// column in 1-48. There is no clamping: anything out of range fails
// with a validation error naming the violated constraint.
func NormalizeWell(raw string) (string, error) {
	label := strings.ToUpper(strings.TrimSpace(raw))
	if len(label) < 2 {
		return "", errors.Validationf("invalid well format: %q", raw)
	}

	rowLetter := label[0]
	colPart := label[1:]

	if rowLetter < minRowLetter || rowLetter > maxRowLetter {
		return "", errors.Validationf("invalid row letter (must be A-P): %c", rowLetter)
	}

	colNum, err := strconv.Atoi(colPart)
	if err != nil {
		return "", errors.Validationf("invalid well format: %q", raw)
	}
	if colNum < minColumn || colNum > maxColumn {
		return "", errors.Validationf("invalid column number (must be 1-48): %d", colNum)
	}

	return fmt.Sprintf("%c%02d", rowLetter, colNum), nil
}

// WellFromIndices converts zero-based plate coordinates, as reported by
// the remote repository, into a canonical well label: (0,0) -> "A01",
// (1,5) -> "B06".
func WellFromIndices(row, col int) (string, error) {
	if row < 0 || row > int(maxRowLetter-minRowLetter) {
		return "", errors.Validationf("well row index out of range: %d", row)
	}
	if col < 0 || col >= maxColumn {
		return "", errors.Validationf("well column index out of range: %d", col)
	}
	return fmt.Sprintf("%c%02d", minRowLetter+byte(row), col+1), nil
}

// WellCondition holds the experimental conditions recorded for one well
// of one plate. Well is always in canonical LetterNN form; construct
// through NewWellCondition to keep that invariant.
type WellCondition struct {
	Plate      string           `json:"plate"`
	Well       string           `json:"well"`
	Conditions map[string]Value `json:"conditions"`
}

// NewWellCondition builds a WellCondition, normalizing the well label.
// Every construction path (spreadsheet parse, remote download, direct
// use) goes through here so a live instance never carries a bad label.
func NewWellCondition(plate, well string, conditions map[string]Value) (WellCondition, error) {
	normalized, err := NormalizeWell(well)
	if err != nil {
		return WellCondition{}, err
	}
	if conditions == nil {
		conditions = map[string]Value{}
	}
	return WellCondition{Plate: plate, Well: normalized, Conditions: conditions}, nil
}
