// Package dataset reads tabular import sources.
package dataset

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// Table is an immutable tabular source with a header row.
type Table interface {
	// Columns returns the header names in file order.
	Columns() []string

	// TotalRows returns the number of data rows, excluding the header.
	TotalRows() int

	// ReadRows returns up to limit rows starting at the zero-based data row
	// offset. Every returned row has exactly len(Columns()) cells.
	ReadRows(offset, limit int) ([][]string, error)
}

// File is a Table backed by an open file.
type File interface {
	Table
	io.Closer
}

// Open opens path as a CSV or XLSX table depending on its extension.
func Open(path string) (File, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt", ".tsv":
		return OpenCSV(path, CSVOptions{})
	case ".xlsx", ".xlsm":
		return OpenXLSX(path, "")
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported file type %q", ext))
	}
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// fit pads or truncates a record to n cells.
func fit(record []string, n int) []string {
	if len(record) == n {
		return record
	}
	out := make([]string, n)
	copy(out, record)
	return out
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// MemoryTable is a Table over rows held in memory.
type MemoryTable struct {
	columns []string
	rows    [][]string
}

var _ Table = (*MemoryTable)(nil)

// NewMemoryTable creates a table from a header and rows.
func NewMemoryTable(columns []string, rows [][]string) *MemoryTable {
	cols := normalizeHeader(columns)
	fitted := make([][]string, len(rows))
	for i, r := range rows {
		fitted[i] = fit(r, len(cols))
	}
	return &MemoryTable{columns: cols, rows: fitted}
}

// Columns implements Table.
func (t *MemoryTable) Columns() []string { return t.columns }

// TotalRows implements Table.
func (t *MemoryTable) TotalRows() int { return len(t.rows) }

// ReadRows implements Table.
func (t *MemoryTable) ReadRows(offset, limit int) ([][]string, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("read rows: invalid range %d+%d", offset, limit)
	}
	if offset >= len(t.rows) {
		return nil, nil
	}
	end := min(offset+limit, len(t.rows))
	return t.rows[offset:end], nil
}
