package source

// convert.go turns user-provided text into typed datums.
//
// CSV exports are messy: dates come in US, EU and ISO layouts, amounts carry
// currency symbols, thousands separators and accounting parentheses, booleans
// are spelled yes/no, t/f or 1/0, and spreadsheet tools add ="..." wrappers.
// Every parser returns an invalid (NULL) pgtype value for empty or unparsable
// input so the resulting Value is undefined.

import (
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xilytix/revdatasource/internal/schema"
)

// numericPattern matches plain integers, decimals and scientific notation.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot is how many years into the future a two-digit year may
// land before it is moved back a century.
var TwoDigitYearPivot = 20

var (
	fullYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02", "20060102",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
	}
	shortYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// currencyReplacer strips currency symbols and thousands separators.
var currencyReplacer = strings.NewReplacer("$", "", "€", "", "£", "", ",", "")

// Parse converts text to the datum type used for fields of type ft.
func Parse(ft schema.FieldType, s string) any {
	s = CleanCell(s)
	switch ft {
	case schema.FieldDate:
		return ParseDate(s)
	case schema.FieldNumeric:
		return ParseNumeric(s)
	case schema.FieldBool:
		return ParseBool(s)
	default:
		return ParseText(s)
	}
}

// ParseText returns s as text, NULL when blank.
func ParseText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}

// ParseDate accepts the layouts above, trying four-digit years first.
func ParseDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}
	}

	for _, layout := range fullYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	pivot := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range shortYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}
	return pgtype.Date{}
}

// ParseNumeric accepts currency amounts, thousands separators and the
// accounting form "(12.50)" for negatives.
func ParseNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(currencyReplacer.Replace(s))
	if negative {
		s = "-" + s
	}
	if !numericPattern.MatchString(s) {
		return pgtype.Numeric{}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0 in any case.
func ParseBool(s string) pgtype.Bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{}
	}
}

// CleanCell strips whitespace, spreadsheet formula wrappers (="x" or =x) and
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3:
		s = s[2 : len(s)-1]
	case strings.HasPrefix(s, "="):
		s = s[1:]
	}
	return strings.Trim(s, `"'`)
}
