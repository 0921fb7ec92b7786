package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/xilytix/revdatasource/internal/schema"
)

// ErrNoHeader is returned when a CSV input has no header row.
var ErrNoHeader = errors.New("csv has no header row")

// CSVReader wraps r so a leading UTF-8 byte order mark is dropped and invalid
// UTF-8 is replaced with U+FFFD while streaming.
func CSVReader(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

// ReadCSV reads a CSV with a header row and returns one MemorySource per data
// row, holding one datum per descriptor. Columns are matched to descriptors by
// normalized name or heading; descriptors without a column are undefined, as
// are descriptors flagged as index dependent, which are computed elsewhere.
func ReadCSV(r io.Reader, descriptors []schema.Descriptor) ([]*MemorySource, error) {
	cr := CSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := mapColumns(header, descriptors)

	var sources []*MemorySource
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if blankRow(row) {
			continue
		}

		datums := make([]any, len(descriptors))
		for i, d := range descriptors {
			col := columns[i]
			if col < 0 || col >= len(row) {
				continue
			}
			datums[i] = Parse(d.Type, row[col])
		}
		sources = append(sources, NewMemorySource(datums, nil))
	}
	return sources, nil
}

// mapColumns returns, per descriptor, the header column feeding it or -1.
func mapColumns(header []string, descriptors []schema.Descriptor) []int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	columns := make([]int, len(descriptors))
	for i, d := range descriptors {
		columns[i] = -1
		if d.DependsOnRecordIndex || d.DependsOnRowIndex {
			continue
		}
		if col, ok := byName[normalizeHeader(d.Name)]; ok {
			columns[i] = col
		} else if col, ok := byName[normalizeHeader(d.Heading)]; ok && d.Heading != "" {
			columns[i] = col
		}
	}
	return columns
}

// normalizeHeader lowercases h and folds spaces and dashes into underscores.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
