package sheet

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"gdformat/internal/model"
)

// ReadCSV reads a CSV export. German spreadsheet software writes ';' as the
// separator, so the delimiter is taken from the header line: ';' if it
// holds more semicolons than commas, ',' otherwise.
func ReadCSV(r io.Reader, opts Options) ([]model.ServiceRecord, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("sheet: read csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(string(head))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sheet: parse csv: %w", err)
	}

	loc := location(opts)
	return decodeRows(rows, opts, func(v string) (time.Time, bool) {
		return parseTextStart(v, loc)
	})
}

func detectDelimiter(sample string) rune {
	line, _, _ := strings.Cut(sample, "\n")
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}
