package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/value"
)

var csvDescriptors = []schema.Descriptor{
	{Name: "record_no", DependsOnRecordIndex: true},
	{Name: "customer_name", Type: schema.FieldText},
	{Name: "amount", Heading: "Total Amount", Type: schema.FieldNumeric},
	{Name: "active", Type: schema.FieldBool},
	{Name: "region", Type: schema.FieldEnum},
}

func TestReadCSV(t *testing.T) {
	input := "\xEF\xBB\xBFCustomer Name,Total Amount,Active,record_no\n" +
		"Acme,\"$1,200.00\",yes,99\n" +
		",,,\n" +
		"Globex,(5)\n"

	sources, err := ReadCSV(strings.NewReader(input), csvDescriptors)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}

	first := sources[0].AllValues()
	if len(first) != len(csvDescriptors) {
		t.Fatalf("got %d values, want %d", len(first), len(csvDescriptors))
	}
	if !first[0].IsUndefined() {
		t.Errorf("record_no = %v, want undefined", first[0].Datum())
	}
	if got := first[1].Datum(); got != (pgtype.Text{String: "Acme", Valid: true}) {
		t.Errorf("customer_name = %#v, want Acme", got)
	}
	if got, ok := value.Number(first[2].Datum()); !ok || got != 1200 {
		t.Errorf("amount = %v, want 1200", first[2].Datum())
	}
	if got := first[3].Datum(); got != (pgtype.Bool{Bool: true, Valid: true}) {
		t.Errorf("active = %#v, want true", got)
	}
	if !first[4].IsUndefined() {
		t.Errorf("region = %v, want undefined", first[4].Datum())
	}

	second := sources[1].AllValues()
	if n, ok := second[2].Datum().(pgtype.Numeric); !ok || n.Int.Sign() >= 0 {
		t.Errorf("amount = %#v, want a negative numeric", second[2].Datum())
	}
	if !second[3].IsUndefined() {
		t.Errorf("active = %v for a short row, want undefined", second[3].Datum())
	}
}

func TestReadCSV_NoHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), csvDescriptors)
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("ReadCSV(empty) error = %v, want ErrNoHeader", err)
	}
}

func TestCSVReader_SanitizesInvalidUTF8(t *testing.T) {
	cr := CSVReader(strings.NewReader("name\nbad\xffbyte\n"))
	if _, err := cr.Read(); err != nil {
		t.Fatalf("Read() header error = %v", err)
	}
	row, err := cr.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if row[0] != "bad�byte" {
		t.Errorf("row = %q, want replacement character", row[0])
	}
}
