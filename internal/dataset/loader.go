package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/xilytix/revdatasource/internal/record"
	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/source"
)

// Loader produces one data source per record for a field list. Every source
// must own exactly len(fields) fields.
type Loader interface {
	Load(ctx context.Context, fields []schema.Descriptor) ([]record.ValueSource, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, fields []schema.Descriptor) ([]record.ValueSource, error)

// Load calls f(ctx, fields).
func (f LoaderFunc) Load(ctx context.Context, fields []schema.Descriptor) ([]record.ValueSource, error) {
	return f(ctx, fields)
}

// CSVLoader reads records from a CSV file with a header row.
type CSVLoader struct {
	Path string
}

// Load implements Loader.
func (l CSVLoader) Load(_ context.Context, fields []schema.Descriptor) ([]record.ValueSource, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	sources, err := source.ReadCSV(f, fields)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Path, err)
	}
	out := make([]record.ValueSource, len(sources))
	for i, s := range sources {
		out[i] = s
	}
	return out, nil
}

// PgLoader reads records from a Postgres table, one row per record. Field
// names are column names.
type PgLoader struct {
	DB        source.DBTX
	Table     string
	KeyColumn string
	Limit     int
}

// Load implements Loader.
func (l PgLoader) Load(ctx context.Context, fields []schema.Descriptor) ([]record.ValueSource, error) {
	sources, err := source.LoadTable(ctx, l.DB, source.Table{
		Name:      l.Table,
		KeyColumn: l.KeyColumn,
		Fields:    fields,
	}, l.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]record.ValueSource, len(sources))
	for i, s := range sources {
		out[i] = s
	}
	return out, nil
}

// DemoLoader generates editable in-memory records with plausible values for
// each field type. The same seed yields the same records.
type DemoLoader struct {
	Rows int
	Seed uint64
}

var (
	demoWords = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Vandelay", "Stark", "Wayne", "Wonka", "Tyrell"}
	demoEnums = []string{"Customer", "Prospect", "Partner", "Reseller"}
	demoEpoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Load implements Loader.
func (l DemoLoader) Load(_ context.Context, fields []schema.Descriptor) ([]record.ValueSource, error) {
	rng := rand.New(rand.NewPCG(l.Seed, l.Seed^0x9e3779b97f4a7c15))

	out := make([]record.ValueSource, l.Rows)
	for r := range out {
		datums := make([]any, len(fields))
		for i, f := range fields {
			if f.DependsOnRecordIndex || f.DependsOnRowIndex {
				continue
			}
			datums[i] = demoDatum(rng, f.Type, r)
		}
		out[r] = source.NewMemorySource(datums, nil)
	}
	return out, nil
}

func demoDatum(rng *rand.Rand, ft schema.FieldType, row int) any {
	switch ft {
	case schema.FieldNumeric:
		var n pgtype.Numeric
		if err := n.Scan(fmt.Sprintf("%d.%02d", rng.IntN(100000), rng.IntN(100))); err != nil {
			return nil
		}
		return n
	case schema.FieldDate:
		return pgtype.Date{Time: demoEpoch.AddDate(0, 0, rng.IntN(730)), Valid: true}
	case schema.FieldBool:
		return pgtype.Bool{Bool: rng.IntN(2) == 1, Valid: true}
	case schema.FieldEnum:
		return pgtype.Text{String: demoEnums[rng.IntN(len(demoEnums))], Valid: true}
	default:
		word := demoWords[rng.IntN(len(demoWords))]
		return pgtype.Text{String: fmt.Sprintf("%s %d", word, row+1), Valid: true}
	}
}
