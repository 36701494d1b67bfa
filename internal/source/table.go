// Package source loads the raw provider tables from a directory of CSV files
// or from Postgres, one core.RawTable per manifest entry.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/hivdash/internal/core"
)

// MaxHeaderSearchRows bounds how far into a file the header row is looked
// for. World Bank downloads carry a four-line preamble before the header.
const MaxHeaderSearchRows = 10

// ParseCSV reads a provider CSV into a RawTable named after def. The header
// is the first row containing one of def's code column candidates; blank
// rows are skipped.
func ParseCSV(r io.Reader, def core.SourceDefinition) (core.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return core.RawTable{}, fmt.Errorf("%s: csv parse error: %w", def.Info.Key, err)
	}
	return tableFromRecords(def, records)
}

func tableFromRecords(def core.SourceDefinition, records [][]string) (core.RawTable, error) {
	candidates := append([]string{core.ColCode}, def.Schema.CodeColumns...)
	headerIdx := findHeaderInRecords(records, candidates)
	if headerIdx < 0 {
		return core.RawTable{}, &core.SchemaMismatchError{
			Table:  def.Info.Key,
			Column: strings.Join(candidates, "|"),
			Reason: fmt.Sprintf("no header row in the first %d rows", MaxHeaderSearchRows),
		}
	}

	t := core.RawTable{Name: def.Info.Key, Header: trimTrailingEmpty(records[headerIdx])}
	for _, row := range records[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// findHeaderInRecords returns the index of the first row that contains any of
// the candidate column names, or -1.
func findHeaderInRecords(records [][]string, candidates []string) int {
	maxRows := MaxHeaderSearchRows
	if len(records) < maxRows {
		maxRows = len(records)
	}

	for i := 0; i < maxRows; i++ {
		for _, cell := range records[i] {
			cell = core.CleanCell(strings.TrimPrefix(cell, "\ufeff"))
			for _, c := range candidates {
				if strings.EqualFold(cell, c) {
					return i
				}
			}
		}
	}
	return -1
}

// trimTrailingEmpty drops the empty column names pandas-style exports leave
// after a trailing comma.
func trimTrailingEmpty(header []string) []string {
	end := len(header)
	for end > 0 && strings.TrimSpace(header[end-1]) == "" {
		end--
	}
	return header[:end]
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
