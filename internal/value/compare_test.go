package value

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func numeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("Scan(%q) error = %v", s, err)
	}
	return n
}

func TestCompareDatums(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"undefined equal", nil, nil, 0},
		{"undefined first", nil, 1, -1},
		{"defined after undefined", "a", nil, 1},
		{"ints", 1, 2, -1},
		{"mixed numeric kinds", 2.5, numeric(t, "2.5"), 0},
		{"numeric order", numeric(t, "10.25"), numeric(t, "9.75"), 1},
		{"dates", pgtype.Date{Time: feb, Valid: true}, jan, 1},
		{"text case-insensitive", "apple", "Banana", -1},
		{"text tie broken by case", "A", "a", -1},
		{"pg text vs string", pgtype.Text{String: "b", Valid: true}, "a", 1},
		{"bools", false, pgtype.Bool{Bool: true, Valid: true}, -1},
		{"numbers before text", 100, "1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareDatums(tt.a, tt.b)
			if sign(got) != tt.want {
				t.Errorf("CompareDatums(%v, %v) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
			if rev := CompareDatums(tt.b, tt.a); sign(rev) != -tt.want {
				t.Errorf("CompareDatums(%v, %v) = %d, want sign %d", tt.b, tt.a, rev, -tt.want)
			}
		})
	}
}

func TestCompare_Values(t *testing.T) {
	a := New(pgtype.Text{}, nil)
	b := New("x", nil)
	if Compare(a, b) >= 0 {
		t.Error("null text should sort before defined text")
	}
}

func TestChangeKindOf(t *testing.T) {
	tests := []struct {
		name         string
		old, updated any
		want         ChangeKind
	}{
		{"increase", 1, 2, ChangeIncrease},
		{"decrease", numeric(t, "5"), numeric(t, "4.5"), ChangeDecrease},
		{"equal", 3, 3.0, ChangeUpdate},
		{"text", "a", "b", ChangeUpdate},
		{"from undefined", nil, 4, ChangeUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChangeKindOf(tt.old, tt.updated); got != tt.want {
				t.Errorf("ChangeKindOf(%v, %v) = %v, want %v", tt.old, tt.updated, got, tt.want)
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
