package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importForm struct {
	FileName  string          `form:"file_name" validate:"required"`
	BatchSize int             `json:"batch_size,omitempty" validate:"gte=1,lte=5000"`
	Price     decimal.Decimal `validate:"gte=0"`
	Format    string          `validate:"oneof=csv xlsx"`
	Culture   string          `form:"culture" validate:"omitempty,bcp47_language_tag"`
}

func validForm() importForm {
	return importForm{
		FileName:  "products.csv",
		BatchSize: 100,
		Price:     decimal.RequireFromString("19.99"),
		Format:    "csv",
		Culture:   "tr-TR",
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(validForm()))
}

func TestValidate_FieldMessages(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*importForm)
		field   string
		message string
	}{
		{"required uses form name", func(f *importForm) { f.FileName = "" }, "file_name", "is required"},
		{"json name drops options", func(f *importForm) { f.BatchSize = 9000 }, "batch_size", "must be less than or equal to 5000"},
		{"lower bound", func(f *importForm) { f.BatchSize = 0 }, "batch_size", "must be greater than or equal to 1"},
		{"decimal compares numerically", func(f *importForm) { f.Price = decimal.NewFromInt(-1) }, "Price", "must be greater than or equal to 0"},
		{"oneof lists choices", func(f *importForm) { f.Format = "json" }, "Format", "must be one of: csv xlsx"},
		{"language tag", func(f *importForm) { f.Culture = "not a culture" }, "culture", "must be a valid language tag"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(&form)

			err := Validate(form)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, map[string]string{tc.field: tc.message}, valErr.Fields())
			assert.Equal(t, "field '"+tc.field+"' "+tc.message, err.Error())
		})
	}
}

func TestValidate_JoinsMessages(t *testing.T) {
	err := Validate(importForm{Format: "csv", BatchSize: 1})

	require.Error(t, err)
	assert.Equal(t, "field 'file_name' is required", err.Error())

	err = Validate(importForm{Format: "csv"})
	assert.Equal(t, "field 'file_name' is required; field 'batch_size' must be greater than or equal to 1", err.Error())
}

func TestValidate_NotAStruct(t *testing.T) {
	err := Validate(42)

	require.Error(t, err)
	var valErr *ValidationError
	assert.NotErrorAs(t, err, &valErr)
}

func TestVar(t *testing.T) {
	tests := []struct {
		name  string
		value any
		tag   string
		want  string
	}{
		{"int ok", 5, "gte=0", ""},
		{"decimal ok", decimal.RequireFromString("0.5"), "gte=0", ""},
		{"decimal negative", decimal.NewFromInt(-3), "gte=0", "value must be greater than or equal to 0"},
		{"int too large", 20000, "lte=10000", "value must be less than or equal to 10000"},
		{"null decimal skipped", decimal.NullDecimal{}, "omitempty,gte=0", ""},
		{"null decimal checked", decimal.NullDecimal{Decimal: decimal.NewFromInt(-1), Valid: true}, "omitempty,gte=0", "value must be greater than or equal to 0"},
		{"url", "ftp//broken", "url", "value must be a valid URL"},
		{"unknown tag text", "abc", "numeric", "value failed on 'numeric' validation"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Var(tc.value, tc.tag)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}
