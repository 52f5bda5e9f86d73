package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// checkpointEvery is the number of rows between remembered byte offsets.
const checkpointEvery = 256

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures CSV parsing.
type CSVOptions struct {
	// Comma is the field delimiter. Zero sniffs ',', ';' or tab from the header line.
	Comma rune
}

// CSVTable reads a CSV file lazily. Opening it scans the file once to count
// rows and remember the byte offset of every checkpointEvery-th row, so a
// later ReadRows seeks close to its offset instead of rereading from the start.
type CSVTable struct {
	mu          sync.Mutex
	f           *os.File
	comma       rune
	columns     []string
	total       int
	checkpoints []int64
}

var _ File = (*CSVTable)(nil)

// OpenCSV opens and indexes a CSV file.
func OpenCSV(path string, opts CSVOptions) (*CSVTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	t := &CSVTable{f: f, comma: opts.Comma}
	if err := t.index(); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

func skipBOM(br *bufio.Reader) int64 {
	b, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		return int64(len(utf8BOM))
	}
	return 0
}

func sniffComma(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, c := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func (t *CSVTable) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = t.comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func (t *CSVTable) index() error {
	br := bufio.NewReader(t.f)
	base := skipBOM(br)
	if t.comma == 0 {
		t.comma = sniffComma(br)
	}

	cr := t.newReader(br)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("read csv header: missing header")
		}
		return fmt.Errorf("read csv header: %w", err)
	}
	t.columns = normalizeHeader(header)

	for {
		start := base + cr.InputOffset()
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("index csv row %d: %w", t.total+1, err)
		}
		if isBlank(record) {
			continue
		}
		if t.total%checkpointEvery == 0 {
			t.checkpoints = append(t.checkpoints, start)
		}
		t.total++
	}
	return nil
}

// Columns implements Table.
func (t *CSVTable) Columns() []string { return t.columns }

// TotalRows implements Table.
func (t *CSVTable) TotalRows() int { return t.total }

// ReadRows implements Table.
func (t *CSVTable) ReadRows(offset, limit int) ([][]string, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("read rows: invalid range %d+%d", offset, limit)
	}
	if offset >= t.total || limit == 0 {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cp := offset / checkpointEvery
	if _, err := t.f.Seek(t.checkpoints[cp], io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek csv: %w", err)
	}
	cr := t.newReader(bufio.NewReader(t.f))

	skip := offset - cp*checkpointEvery
	rows := make([][]string, 0, min(limit, t.total-offset))
	for len(rows) < limit {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if isBlank(record) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		rows = append(rows, fit(record, len(t.columns)))
	}
	return rows, nil
}

// Close releases the underlying file.
func (t *CSVTable) Close() error {
	return t.f.Close()
}
