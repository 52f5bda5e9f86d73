package importer

import (
	"strings"

	"github.com/utafrali/catalogimporter/internal/domain"
)

// Row is the working set of one data row during a batch.
type Row struct {
	index     int
	values    []string
	segmenter *Segmenter

	// Entity is the resolved or newly built product, nil when resolution failed.
	Entity *domain.Product

	// IsNew is set when the row creates a product.
	IsNew bool

	// IsTransient is set while the product is not durably written. Transient
	// rows are excluded from the dependent stages.
	IsTransient bool

	// NameChanged is set when an existing product's name changed.
	NameChanged bool

	// FieldErrors maps a column to the conversion or validation error recorded for it.
	FieldErrors map[string]string
}

// Index returns the 1-based data row number.
func (r *Row) Index() int { return r.index }

// Raw returns the untrimmed cell of column and whether the column exists.
func (r *Row) Raw(column string) (string, bool) {
	i, ok := r.segmenter.columnIndex(column)
	if !ok || i >= len(r.values) {
		return "", ok
	}
	return r.values[i], true
}

// Value returns the trimmed cell of column, empty when the column is absent.
func (r *Row) Value(column string) string {
	v, _ := r.Raw(column)
	return strings.TrimSpace(v)
}

// Localized returns the trimmed cell of the "field[code]" column.
func (r *Row) Localized(field, code string) string {
	return r.Value(localizedColumn(field, code))
}

// IntList parses the cell of column as a list of identifiers.
func (r *Row) IntList(column string) ([]int, error) {
	v := r.Value(column)
	if v == "" || isNullLiteral(v) {
		return nil, nil
	}
	return r.segmenter.culture.ParseIntList(v)
}

func (r *Row) addFieldError(column, msg string) {
	if r.FieldErrors == nil {
		r.FieldErrors = make(map[string]string)
	}
	r.FieldErrors[column] = msg
}

// persisted reports whether the row's product was durably written.
func (r *Row) persisted() bool {
	return r.Entity != nil && !r.IsTransient
}

func isNullLiteral(v string) bool {
	return strings.EqualFold(v, "null")
}
