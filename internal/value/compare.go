package value

import (
	"cmp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Ordering classes. Values of different classes order by class; undefined
// values sort first.
const (
	classUndefined = iota
	classBool
	classNumber
	classTime
	classText
)

type sortKey struct {
	class int
	num   float64
	t     time.Time
	text  string
}

func keyOf(datum any) sortKey {
	switch d := datum.(type) {
	case nil:
		return sortKey{class: classUndefined}
	case bool:
		return boolKey(d)
	case pgtype.Bool:
		return boolKey(d.Bool)
	case time.Time:
		return sortKey{class: classTime, t: d}
	case pgtype.Date:
		return sortKey{class: classTime, t: d.Time}
	case pgtype.Timestamptz:
		return sortKey{class: classTime, t: d.Time}
	case string:
		return sortKey{class: classText, text: d}
	case pgtype.Text:
		return sortKey{class: classText, text: d.String}
	}
	if n, ok := Number(datum); ok {
		return sortKey{class: classNumber, num: n}
	}
	return sortKey{class: classText, text: Format(datum)}
}

func boolKey(b bool) sortKey {
	k := sortKey{class: classBool}
	if b {
		k.num = 1
	}
	return k
}

// Number extracts a float64 from numeric datums.
func Number(datum any) (float64, bool) {
	switch d := datum.(type) {
	case int:
		return float64(d), true
	case int32:
		return float64(d), true
	case int64:
		return float64(d), true
	case float64:
		return d, true
	case pgtype.Int4:
		return float64(d.Int32), d.Valid
	case pgtype.Int8:
		return float64(d.Int64), d.Valid
	case pgtype.Float8:
		return d.Float64, d.Valid
	case pgtype.Numeric:
		f, err := d.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, true
	default:
		return 0, false
	}
}

// CompareDatums is a total order over datums: undefined first, then booleans,
// numbers, times and text. Text compares case-insensitively, falling back to a
// case-sensitive comparison to break ties.
func CompareDatums(a, b any) int {
	ka, kb := keyOf(a), keyOf(b)
	if c := cmp.Compare(ka.class, kb.class); c != 0 {
		return c
	}

	switch ka.class {
	case classBool, classNumber:
		return cmp.Compare(ka.num, kb.num)
	case classTime:
		return ka.t.Compare(kb.t)
	case classText:
		if c := strings.Compare(strings.ToLower(ka.text), strings.ToLower(kb.text)); c != 0 {
			return c
		}
		return strings.Compare(ka.text, kb.text)
	default:
		return 0
	}
}

// Compare orders two values by their datums. See CompareDatums.
func Compare(a, b *Value) int {
	return CompareDatums(a.datum, b.datum)
}

// ChangeKindOf classifies the change from old to updated. Numeric datums yield
// Increase or Decrease; everything else is an Update.
func ChangeKindOf(old, updated any) ChangeKind {
	o, ok1 := Number(old)
	n, ok2 := Number(updated)
	if !ok1 || !ok2 {
		return ChangeUpdate
	}
	switch {
	case n > o:
		return ChangeIncrease
	case n < o:
		return ChangeDecrease
	default:
		return ChangeUpdate
	}
}
