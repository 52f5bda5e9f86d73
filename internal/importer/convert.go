package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// DefaultCulture is used when a run does not name one.
const DefaultCulture = "en-US"

// Languages writing "1.234,56".
var dotGroupLanguages = map[string]bool{
	"de": true, "nl": true, "it": true, "es": true, "pt": true, "tr": true, "da": true, "id": true,
}

// Languages writing "1 234,56".
var spaceGroupLanguages = map[string]bool{
	"fr": true, "ru": true, "pl": true, "sv": true, "cs": true, "fi": true, "nb": true, "uk": true, "sk": true,
}

var isoDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var boolWords = map[string]bool{
	"true": true, "false": false,
	"1": true, "0": false,
	"yes": true, "no": false,
	"y": true, "n": false,
	"on": true, "off": false,
	"ja": true, "nein": false,
	"wahr": true, "falsch": false,
	"oui": true, "non": false,
	"si": true, "sí": true,
	"evet": true, "hayır": false,
}

var errEmptyValue = errors.New("empty value")

// Culture converts raw cell text into typed values using one locale's
// number and date conventions.
type Culture struct {
	tag         language.Tag
	decimalSep  string
	groupSeps   []string
	dateLayouts []string
}

// ParseCulture builds a Culture from a BCP 47 tag such as "de-DE".
func ParseCulture(name string) (*Culture, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultCulture
	}
	tag, err := language.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("parse culture %q: %w", name, err)
	}

	base, _ := tag.Base()
	region, _ := tag.Region()
	lang := base.String()

	c := &Culture{tag: tag, decimalSep: ".", groupSeps: []string{","}}
	switch {
	case region.String() == "CH":
		c.groupSeps = []string{"'", "\u2019"}
	case dotGroupLanguages[lang]:
		c.decimalSep, c.groupSeps = ",", []string{"."}
	case spaceGroupLanguages[lang]:
		c.decimalSep, c.groupSeps = ",", []string{" ", "\u00a0", "\u202f"}
	}

	switch {
	case region.String() == "US":
		c.dateLayouts = []string{"1/2/2006 3:04:05 PM", "1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006"}
	case lang == "ja" || lang == "zh" || lang == "ko":
		c.dateLayouts = []string{"2006/1/2 15:04:05", "2006/1/2"}
	case c.decimalSep == ",":
		c.dateLayouts = []string{"2.1.2006 15:04:05", "2.1.2006 15:04", "2.1.2006", "2/1/2006"}
	default:
		c.dateLayouts = []string{"2/1/2006 15:04:05", "2/1/2006 15:04", "2/1/2006", "2.1.2006"}
	}
	return c, nil
}

// Name returns the canonical culture tag.
func (c *Culture) Name() string { return c.tag.String() }

func (c *Culture) normalizeNumber(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyValue
	}
	for _, g := range c.groupSeps {
		s = strings.ReplaceAll(s, g, "")
	}
	if c.decimalSep != "." {
		s = strings.ReplaceAll(s, c.decimalSep, ".")
	}
	return s, nil
}

// ParseDecimal parses a culture-formatted number.
func (c *Culture) ParseDecimal(s string) (decimal.Decimal, error) {
	n, err := c.normalizeNumber(s)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a valid number", s)
	}
	return d, nil
}

// ParseInt64 parses a whole number. Values with a zero fraction such as "5.0" are accepted.
func (c *Culture) ParseInt64(s string) (int64, error) {
	n, err := c.normalizeNumber(s)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(n, 10, 64); err == nil {
		return v, nil
	}
	d, err := decimal.NewFromString(n)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("%q is not a valid whole number", s)
	}
	return d.IntPart(), nil
}

// ParseInt parses a whole number that fits in an int.
func (c *Culture) ParseInt(s string) (int, error) {
	v, err := c.ParseInt64(s)
	if err != nil {
		return 0, err
	}
	if int64(int(v)) != v {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return int(v), nil
}

// ParseBool accepts common true/false words in several languages.
func (c *Culture) ParseBool(s string) (bool, error) {
	v, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return false, fmt.Errorf("%q is not a valid boolean", s)
	}
	return v, nil
}

// ParseTime parses ISO 8601 or a culture-specific date. Values without a
// zone are taken as UTC.
func (c *Culture) ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyValue
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range c.dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date", s)
}

// ParseIntList parses identifiers separated by commas, semicolons, pipes or whitespace.
func (c *Culture) ParseIntList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid list of ids", s)
		}
		out = append(out, v)
	}
	return out, nil
}
