package dataset

import (
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSXTable reads one worksheet through excelize's streaming row iterator.
// Sequential reads reuse the open iterator; reading backwards restarts it.
type XLSXTable struct {
	mu      sync.Mutex
	f       *excelize.File
	sheet   string
	columns []string
	total   int

	rows *excelize.Rows
	pos  int
}

var _ File = (*XLSXTable)(nil)

// OpenXLSX opens sheet of the workbook at path. An empty sheet selects the first one.
func OpenXLSX(path, sheet string) (*XLSXTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, fmt.Errorf("open xlsx: no sheets found")
		}
		sheet = sheets[0]
	}

	t := &XLSXTable{f: f, sheet: sheet}
	if err := t.index(); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

func (t *XLSXTable) index() error {
	rows, err := t.f.Rows(t.sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", t.sheet, err)
	}
	defer rows.Close()

	header := true
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", t.sheet, err)
		}
		if header {
			if isBlank(record) {
				continue
			}
			t.columns = normalizeHeader(record)
			header = false
			continue
		}
		if !isBlank(record) {
			t.total++
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("read sheet %q: %w", t.sheet, err)
	}
	if header {
		return fmt.Errorf("read sheet %q: missing header", t.sheet)
	}
	return nil
}

// restart positions the iterator just after the header row.
func (t *XLSXTable) restart() error {
	if t.rows != nil {
		t.rows.Close()
	}
	rows, err := t.f.Rows(t.sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", t.sheet, err)
	}
	t.rows, t.pos = rows, 0

	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", t.sheet, err)
		}
		if !isBlank(record) {
			return nil
		}
	}
	return rows.Error()
}

// next returns the next non-blank data row.
func (t *XLSXTable) next() ([]string, bool, error) {
	for t.rows.Next() {
		record, err := t.rows.Columns()
		if err != nil {
			return nil, false, fmt.Errorf("read sheet %q: %w", t.sheet, err)
		}
		if isBlank(record) {
			continue
		}
		t.pos++
		return fit(record, len(t.columns)), true, nil
	}
	return nil, false, t.rows.Error()
}

// Columns implements Table.
func (t *XLSXTable) Columns() []string { return t.columns }

// TotalRows implements Table.
func (t *XLSXTable) TotalRows() int { return t.total }

// ReadRows implements Table.
func (t *XLSXTable) ReadRows(offset, limit int) ([][]string, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("read rows: invalid range %d+%d", offset, limit)
	}
	if offset >= t.total || limit == 0 {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rows == nil || offset < t.pos {
		if err := t.restart(); err != nil {
			return nil, err
		}
	}
	for t.pos < offset {
		if _, ok, err := t.next(); err != nil || !ok {
			return nil, err
		}
	}

	rows := make([][]string, 0, min(limit, t.total-offset))
	for len(rows) < limit {
		record, ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// Close releases the iterator and the workbook.
func (t *XLSXTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rows != nil {
		t.rows.Close()
		t.rows = nil
	}
	return t.f.Close()
}
