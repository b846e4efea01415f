// Package sheet reads the ChurchDesk spreadsheet export (.xlsx or .csv) into
// service records. It only maps cells to fields; all validation of the
// values is left to the formatter.
package sheet

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gdformat/internal/config"
	appLog "gdformat/internal/log"
	"gdformat/internal/model"
)

// ErrUnsupportedFormat is returned for file names that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("sheet: unsupported file type (want .xlsx or .csv)")

// ErrNoHeader is returned when the sheet has no rows at all.
var ErrNoHeader = errors.New("sheet: no header row")

// MissingColumnsError lists every configured column absent from the header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "sheet: missing columns: " + strings.Join(e.Missing, ", ")
}

// Options controls how rows are decoded.
type Options struct {
	Columns config.ColumnsConfig
	// Location is the zone date cells are interpreted in; nil means time.Local.
	Location *time.Location
	// SourceID tags every record, usually the uploaded file name.
	SourceID string
}

// Read decodes r according to the extension of name.
func Read(name string, r io.Reader, opts Options) ([]model.ServiceRecord, error) {
	if opts.SourceID == "" {
		opts.SourceID = filepath.Base(name)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, opts)
	case ".csv", ".txt":
		return ReadCSV(r, opts)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// columnIndex maps each ServiceRecord field to its position in a row.
type columnIndex struct {
	start, title, location, officiant, parish int
}

func indexHeader(header []string, cols config.ColumnsConfig) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	var missing []string
	find := func(name string) int {
		if i, ok := pos[headerKey(name)]; ok {
			return i
		}
		missing = append(missing, name)
		return -1
	}

	idx := columnIndex{
		start:     find(cols.Start),
		title:     find(cols.Title),
		location:  find(cols.Location),
		officiant: find(cols.Officiant),
		parish:    find(cols.Parish),
	}
	if len(missing) > 0 {
		return idx, &MissingColumnsError{Missing: missing}
	}
	return idx, nil
}

func headerKey(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

// startParser turns the raw start cell into a time. ok is false if the cell
// is empty or unparseable.
type startParser func(cell string) (time.Time, bool)

// decodeRows converts a header row plus data rows. Records carry their
// spreadsheet row number, counting the header as row 1.
func decodeRows(rows [][]string, opts Options, parseStart startParser) ([]model.ServiceRecord, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	idx, err := indexHeader(rows[0], opts.Columns)
	if err != nil {
		return nil, err
	}

	out := make([]model.ServiceRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rowNum := i + 2
		rec := model.ServiceRecord{
			SourceID:         opts.SourceID,
			Row:              rowNum,
			Title:            cell(row, idx.title),
			LocationPrimary:  cell(row, idx.location),
			LocationFallback: cell(row, idx.parish),
			Officiant:        cell(row, idx.officiant),
		}
		if raw := cell(row, idx.start); raw != "" {
			if t, ok := parseStart(raw); ok {
				rec.Start = t
			} else {
				appLog.Info("sheet: unparseable start date", "source", opts.SourceID, "row", rowNum, "value", raw)
			}
		}
		out = append(out, rec)
	}

	appLog.Debug("sheet decoded", "source", opts.SourceID, "records", len(out))
	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// textLayouts are the date-time spellings seen in hand-edited exports.
var textLayouts = []string{
	"02.01.2006 15:04",
	"02.01.2006 15:04:05",
	"2.1.2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"02.01.2006",
	"2006-01-02",
}

// parseTextStart parses a textual date-time cell in loc. RFC 3339 values
// keep their own offset.
func parseTextStart(v string, loc *time.Location) (time.Time, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, " Uhr")
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), true
	}
	for _, layout := range textLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func location(opts Options) *time.Location {
	if opts.Location != nil {
		return opts.Location
	}
	return time.Local
}
