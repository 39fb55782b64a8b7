// Package excel reads MIHCSME workbooks into the metadata model. A
// workbook carries four required sheets (the three tier sheets plus the
// conditions table) and any number of optional reference sheets whose
// names start with "_". The parser never returns a partial aggregate:
// it yields a complete Metadata or an error.
package excel

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/screendata/mihcsme/internal/errors"
	"github.com/screendata/mihcsme/internal/model"
)

// CommentMarker starts rows that the parser ignores on every sheet.
const CommentMarker = "#"

// groupHeaderPlaceholder is the header label used in the group column
// of tier sheets; rows carrying it are structure, not data.
const groupHeaderPlaceholder = "Annotation_groups"

// acceptedExtensions lists the recognized workbook file extensions.
//
//nolint:gochecknoglobals // Static lookup table
var acceptedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// Parser reads MIHCSME workbooks.
type Parser struct {
	logger *slog.Logger
}

// New creates a workbook parser.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse transforms a workbook file into a complete Metadata aggregate.
// Missing files yield a not-found error, unrecognized extensions a
// format error, and missing required sheets a validation error that
// names every absent sheet at once.
func (p *Parser) Parse(path string) (*model.Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NotFoundf("workbook not found: %s", path)
	}
	if !acceptedExtensions[strings.ToLower(filepath.Ext(path))] {
		return nil, errors.Formatf("file must be a spreadsheet (.xlsx/.xls): %s", path)
	}

	p.logger.Info("parsing MIHCSME workbook", "path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFormat, "failed to open workbook %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	present := make(map[string]bool, len(sheets))
	for _, name := range sheets {
		present[name] = true
	}

	// Collect every missing required sheet before failing, so one parse
	// attempt reports the full shortfall.
	var missing []string
	for _, name := range []string{model.KeyInvestigation, model.KeyStudy, model.KeyAssay, model.KeyConditions} {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Validationf("missing required sheets: %s", strings.Join(missing, ", "))
	}

	m := &model.Metadata{}

	invGroups, err := p.parseTierSheet(f, model.KeyInvestigation)
	if err != nil {
		return nil, err
	}
	if len(invGroups) > 0 {
		m.Investigation = &model.InvestigationInfo{Groups: invGroups}
	}

	studyGroups, err := p.parseTierSheet(f, model.KeyStudy)
	if err != nil {
		return nil, err
	}
	if len(studyGroups) > 0 {
		m.Study = &model.StudyInfo{Groups: studyGroups}
	}

	assayGroups, err := p.parseTierSheet(f, model.KeyAssay)
	if err != nil {
		return nil, err
	}
	if len(assayGroups) > 0 {
		m.Assay = &model.AssayInfo{Groups: assayGroups}
	}

	m.Conditions, err = p.parseConditions(f, model.KeyConditions)
	if err != nil {
		return nil, err
	}

	for _, name := range sheets {
		if !strings.HasPrefix(name, model.ReferencePrefix) {
			continue
		}
		data := p.parseReferenceSheet(f, name)
		if len(data) == 0 {
			continue
		}
		ref, err := model.NewReferenceTable(name, data)
		if err != nil {
			return nil, err
		}
		m.ReferenceTables = append(m.ReferenceTables, ref)
	}

	return m, nil
}

// parseTierSheet reads a three-column group/key/value sheet into
// grouped fields. Comment rows, rows without a group or key, and the
// header placeholder are skipped; a present key with no value is kept
// as an explicit nil so presence-without-value stays representable.
func (p *Parser) parseTierSheet(f *excelize.File, sheet string) (model.GroupedFields, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFormat, "failed to read sheet %s", sheet)
	}

	groups := model.GroupedFields{}
	for _, row := range rows {
		group := cellAt(row, 0)
		if group == "" || group == groupHeaderPlaceholder || strings.HasPrefix(group, CommentMarker) {
			continue
		}
		key := cellAt(row, 1)
		if key == "" {
			continue
		}
		groups.Set(group, key, parseCell(cellAt(row, 2)))
	}

	p.logger.Debug("parsed tier sheet", "sheet", sheet, "groups", len(groups))
	return groups, nil
}

// parseConditions reads the per-well conditions table. After stripping
// comment rows, the first surviving row is the header; "Plate" and
// "Well" columns are mandatory. Rows missing either are skipped, and
// every other non-empty column value becomes a condition field.
func (p *Parser) parseConditions(f *excelize.File, sheet string) ([]model.WellCondition, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFormat, "failed to read sheet %s", sheet)
	}

	surviving := rows[:0:0]
	for _, row := range rows {
		if strings.HasPrefix(cellAt(row, 0), CommentMarker) {
			continue
		}
		surviving = append(surviving, row)
	}
	if len(surviving) == 0 {
		p.logger.Warn("no data in conditions sheet after removing comments", "sheet", sheet)
		return nil, nil
	}

	header := surviving[0]
	plateCol, wellCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case model.ColumnPlate:
			plateCol = i
		case model.ColumnWell:
			wellCol = i
		}
	}
	if plateCol < 0 || wellCol < 0 {
		return nil, errors.Validationf("missing required %q or %q column in %s", model.ColumnPlate, model.ColumnWell, sheet)
	}

	var conditions []model.WellCondition
	for _, row := range surviving[1:] {
		plate := cellAt(row, plateCol)
		well := cellAt(row, wellCol)
		if plate == "" || well == "" {
			continue
		}

		fields := map[string]model.Value{}
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name == "" || i == plateCol || i == wellCol {
				continue
			}
			if value := cellAt(row, i); value != "" {
				fields[name] = value
			}
		}

		cond, err := model.NewWellCondition(plate, well, fields)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	p.logger.Info("parsed conditions sheet", "sheet", sheet, "wells", len(conditions))
	return conditions, nil
}

// parseReferenceSheet reads an auxiliary two-column lookup sheet.
// Reference sheets are explicitly best-effort: any failure degrades to
// an empty table instead of aborting the whole parse.
func (p *Parser) parseReferenceSheet(f *excelize.File, sheet string) map[string]model.Value {
	rows, err := f.GetRows(sheet)
	if err != nil {
		p.logger.Error("error reading reference sheet", "sheet", sheet, "error", err)
		return nil
	}

	surviving := rows[:0:0]
	for _, row := range rows {
		if strings.HasPrefix(cellAt(row, 0), CommentMarker) || rowEmpty(row) {
			continue
		}
		surviving = append(surviving, row)
	}
	if len(surviving) == 0 {
		p.logger.Debug("reference sheet is empty", "sheet", sheet)
		return nil
	}

	// First surviving row is the header; anything narrower than two
	// columns cannot produce key/value entries.
	if len(surviving[0]) < 2 {
		return nil
	}

	data := map[string]model.Value{}
	for _, row := range surviving[1:] {
		key := cellAt(row, 0)
		if key == "" {
			continue
		}
		data[key] = parseCell(cellAt(row, 1))
	}

	p.logger.Debug("parsed reference sheet", "sheet", sheet, "entries", len(data))
	return data
}

// cellAt returns the trimmed cell at index i, tolerating ragged rows.
func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseCell normalizes a raw cell into the model value union: empty
// cells become nil, numeric text becomes float64, everything else stays
// a string.
func parseCell(cell string) model.Value {
	if cell == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		return n
	}
	return cell
}
