package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/xilytix/revdatasource/internal/record"
	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/value"
)

// ErrRowNotFound is returned by Load when the keyed row no longer exists.
var ErrRowNotFound = errors.New("row not found")

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Table names a Postgres table and the columns feeding a record's fields.
type Table struct {
	Name      string
	KeyColumn string
	Fields    []schema.Descriptor // Name is the column name
}

// columns returns the quoted columns of the non index-dependent fields and,
// per field, its position among them or -1.
func (t Table) columns() ([]string, []int) {
	var cols []string
	positions := make([]int, len(t.Fields))
	for i, d := range t.Fields {
		positions[i] = -1
		if d.DependsOnRecordIndex || d.DependsOnRowIndex {
			continue
		}
		positions[i] = len(cols)
		cols = append(cols, pgx.Identifier{d.Name}.Sanitize())
	}
	return cols, positions
}

// PgRowSource serves one row of a Postgres table, identified by its key.
// Until loaded its values are undefined and marked stale; Load fetches the
// row, reports it as a bulk change and incubates the source.
type PgRowSource struct {
	record.SourceBase

	db     DBTX
	table  Table
	key    any
	values []*value.Value
	loaded bool
	active bool
}

// NewPgRowSource returns an unloaded source for the row with the given key.
func NewPgRowSource(db DBTX, table Table, key any) *PgRowSource {
	s := &PgRowSource{
		SourceBase: record.NewSourceBase(len(table.Fields)),
		db:         db,
		table:      table,
		key:        key,
		values:     make([]*value.Value, len(table.Fields)),
	}
	for i := range s.values {
		v := value.NewUndefined(nil)
		v.AddRenderAttribute(value.RenderAttribute{Kind: value.AttributeStale})
		s.values[i] = v
	}
	return s
}

// Key returns the row key.
func (s *PgRowSource) Key() any { return s.key }

// Loaded reports whether the row has been fetched.
func (s *PgRowSource) Loaded() bool { return s.loaded }

// Activate implements record.ValueSource. A source filled by LoadTable is
// incubated here; an unloaded one stays undefined until Load.
func (s *PgRowSource) Activate() []*value.Value {
	s.active = true
	if s.loaded {
		s.MarkIncubated()
	}
	return s.values
}

// Deactivate implements record.ValueSource.
func (s *PgRowSource) Deactivate() {
	s.active = false
}

// AllValues implements record.ValueSource.
func (s *PgRowSource) AllValues() []*value.Value {
	return s.values
}

// Load fetches the row and replaces every value with what the database holds.
// The fetched values are marked as replaced.
func (s *PgRowSource) Load(ctx context.Context) error {
	cols, positions := s.table.columns()
	if len(cols) == 0 {
		s.loaded = true
		s.MarkIncubated()
		return nil
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(cols, ", "),
		pgx.Identifier{s.table.Name}.Sanitize(),
		pgx.Identifier{s.table.KeyColumn}.Sanitize(),
	)

	dests := scanTargets(s.table.Fields, positions, len(cols))
	if err := s.db.QueryRow(ctx, sql, s.key).Scan(dests...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load %s %v: %w", s.table.Name, s.key, ErrRowNotFound)
		}
		return fmt.Errorf("load %s %v: %w", s.table.Name, s.key, err)
	}

	s.fill(positions, dests)
	for _, v := range s.values {
		v.AddRenderAttribute(value.RenderAttribute{Kind: value.AttributeRecordChanged})
	}
	s.loaded = true
	s.NotifyAllValuesChanged(0, s.values)
	s.MarkIncubated()
	return nil
}

func (s *PgRowSource) fill(positions []int, dests []any) {
	for i, pos := range positions {
		if pos < 0 {
			s.values[i] = value.NewUndefined(nil)
			continue
		}
		s.values[i] = value.New(scannedDatum(dests[pos]), nil)
	}
}

// LoadTable reads up to limit rows of the table ordered by key, limit <= 0
// meaning all rows, and returns one loaded, incubation-ready source per row.
func LoadTable(ctx context.Context, db DBTX, table Table, limit int) ([]*PgRowSource, error) {
	cols, positions := table.columns()
	selected := append([]string{pgx.Identifier{table.KeyColumn}.Sanitize()}, cols...)

	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY 1",
		strings.Join(selected, ", "),
		pgx.Identifier{table.Name}.Sanitize(),
	)
	var args []any
	if limit > 0 {
		sql += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table.Name, err)
	}
	defer rows.Close()

	var sources []*PgRowSource
	for rows.Next() {
		var key any
		dests := scanTargets(table.Fields, positions, len(cols))
		if err := rows.Scan(append([]any{&key}, dests...)...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table.Name, err)
		}

		src := NewPgRowSource(db, table, key)
		src.fill(positions, dests)
		src.loaded = true
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table.Name, err)
	}
	return sources, nil
}

// scanTargets allocates one pgtype destination per selected column.
func scanTargets(fields []schema.Descriptor, positions []int, n int) []any {
	dests := make([]any, n)
	for i, pos := range positions {
		if pos < 0 {
			continue
		}
		switch fields[i].Type {
		case schema.FieldDate:
			dests[pos] = &pgtype.Date{}
		case schema.FieldNumeric:
			dests[pos] = &pgtype.Numeric{}
		case schema.FieldBool:
			dests[pos] = &pgtype.Bool{}
		default:
			dests[pos] = &pgtype.Text{}
		}
	}
	return dests
}

func scannedDatum(dest any) any {
	switch d := dest.(type) {
	case *pgtype.Date:
		return *d
	case *pgtype.Numeric:
		return *d
	case *pgtype.Bool:
		return *d
	case *pgtype.Text:
		return *d
	default:
		return nil
	}
}
