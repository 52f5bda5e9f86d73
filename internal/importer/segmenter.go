package importer

import (
	"fmt"
	"strings"

	"github.com/utafrali/catalogimporter/internal/dataset"
)

// Segmenter splits a table into fixed-size batches read one at a time.
type Segmenter struct {
	table     dataset.Table
	batchSize int
	culture   *Culture

	total     int
	columns   []string
	index     map[string]int
	localized map[string]bool

	batchIndex int // zero-based index of the next batch to read
	current    []*Row
	firstRow   int
	err        error
}

// NewSegmenter creates a segmenter over table. The header is indexed up
// front so column checks are available before the first batch is read.
func NewSegmenter(table dataset.Table, batchSize int, culture *Culture) *Segmenter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	cols := table.Columns()
	s := &Segmenter{
		table:     table,
		batchSize: batchSize,
		culture:   culture,
		total:     table.TotalRows(),
		columns:   cols,
		index:     make(map[string]int, len(cols)),
		localized: make(map[string]bool),
	}
	for i, c := range cols {
		key := strings.ToLower(c)
		if _, dup := s.index[key]; !dup {
			s.index[key] = i
		}
		if field, _, ok := splitLocalized(c); ok {
			s.localized[strings.ToLower(field)] = true
		}
	}
	return s
}

// splitLocalized splits "Name[de]" into "Name" and "de".
func splitLocalized(column string) (field, code string, ok bool) {
	open := strings.IndexByte(column, '[')
	if open <= 0 || !strings.HasSuffix(column, "]") {
		return "", "", false
	}
	code = column[open+1 : len(column)-1]
	if code == "" {
		return "", "", false
	}
	return column[:open], code, true
}

func localizedColumn(field, code string) string {
	return field + "[" + code + "]"
}

// TotalRows returns the number of data rows.
func (s *Segmenter) TotalRows() int { return s.total }

// BatchSize returns the maximum number of rows per batch.
func (s *Segmenter) BatchSize() int { return s.batchSize }

// BatchCount returns the number of batches the table splits into.
func (s *Segmenter) BatchCount() int {
	return (s.total + s.batchSize - 1) / s.batchSize
}

// Columns returns the header names.
func (s *Segmenter) Columns() []string { return s.columns }

// HasColumn reports whether the table has the column, ignoring case.
func (s *Segmenter) HasColumn(name string) bool {
	_, ok := s.index[strings.ToLower(name)]
	return ok
}

// HasLocalizedColumn reports whether any "field[code]" column exists for field.
func (s *Segmenter) HasLocalizedColumn(field string) bool {
	return s.localized[strings.ToLower(field)]
}

func (s *Segmenter) columnIndex(name string) (int, bool) {
	i, ok := s.index[strings.ToLower(name)]
	return i, ok
}

// ReadNextBatch loads the next batch. It returns false when the table is
// exhausted or a read failed; Err distinguishes the two.
func (s *Segmenter) ReadNextBatch() bool {
	if s.err != nil {
		return false
	}
	offset := s.batchIndex * s.batchSize
	if offset >= s.total {
		s.current = nil
		return false
	}

	records, err := s.table.ReadRows(offset, s.batchSize)
	if err != nil {
		s.err = fmt.Errorf("read batch %d: %w", s.batchIndex+1, err)
		s.current = nil
		return false
	}
	if len(records) == 0 {
		s.current = nil
		return false
	}

	rows := make([]*Row, len(records))
	for i, rec := range records {
		rows[i] = &Row{index: offset + i + 1, values: rec, segmenter: s}
	}
	s.current = rows
	s.firstRow = offset + 1
	s.batchIndex++
	return true
}

// Err returns the first read error.
func (s *Segmenter) Err() error { return s.err }

// CurrentBatch returns the rows of the batch loaded by the last ReadNextBatch.
func (s *Segmenter) CurrentBatch() []*Row { return s.current }

// CurrentSegment returns the 1-based number of the current batch.
func (s *Segmenter) CurrentSegment() int { return s.batchIndex }

// CurrentSegmentFirstRowIndex returns the 1-based row number of the first row of the current batch.
func (s *Segmenter) CurrentSegmentFirstRowIndex() int { return s.firstRow }

// Seek positions the segmenter so that the next ReadNextBatch loads the
// batch with the given zero-based index.
func (s *Segmenter) Seek(batchIndex int) error {
	if batchIndex < 0 || (batchIndex > 0 && batchIndex >= s.BatchCount()) {
		return fmt.Errorf("seek batch %d: out of range [0, %d)", batchIndex, s.BatchCount())
	}
	s.batchIndex = batchIndex
	s.current = nil
	s.firstRow = 0
	return nil
}
