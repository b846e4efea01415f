package sheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gdformat/internal/model"
)

// ReadXLSX reads the first worksheet of an .xlsx workbook. Date cells are
// read as raw serial numbers and converted in opts.Location, so the
// workbook's display format does not matter.
func ReadXLSX(r io.Reader, opts Options) ([]model.ServiceRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet: read rows of %q: %w", sheets[0], err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	loc := location(opts)
	return decodeRows(rows, opts, func(v string) (time.Time, bool) {
		return parseXLSXStart(v, date1904, loc)
	})
}

// parseXLSXStart accepts an Excel serial date ("45809.395833") or any of
// the textual layouts.
func parseXLSXStart(v string, date1904 bool, loc *time.Location) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, false
		}
		// Serial fractions carry float noise; 09:29:59.9998 is 09:30.
		t = t.Round(time.Second)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
	}
	return parseTextStart(v, loc)
}
