package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Presets are named descriptor lists used to configure a registry without an
// external layout definition.
var (
	presets   = make(map[string][]Descriptor)
	presetsMu sync.RWMutex
)

// RegisterPreset adds a named descriptor list.
// Panics if a preset with the same name is already registered.
func RegisterPreset(name string, ds []Descriptor) {
	presetsMu.Lock()
	defer presetsMu.Unlock()

	if _, exists := presets[name]; exists {
		panic(fmt.Sprintf("preset already registered: %s", name))
	}
	presets[name] = ds
}

// Preset returns a copy of the named descriptor list.
// Returns false if not found.
func Preset(name string) ([]Descriptor, bool) {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	ds, ok := presets[name]
	if !ok {
		return nil, false
	}
	return append([]Descriptor(nil), ds...), true
}

// PresetNames returns all registered preset names, sorted.
func PresetNames() []string {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Positional fields shared by the builtin presets.
var (
	recordNumberField = Descriptor{Name: "record_no", Heading: "Rec #", Type: FieldNumeric, DependsOnRecordIndex: true}
	rowNumberField    = Descriptor{Name: "row_no", Heading: "Row #", Type: FieldNumeric, DependsOnRowIndex: true}
)

func init() {
	RegisterPreset("customers", []Descriptor{
		recordNumberField,
		rowNumberField,
		{Name: "internal_id", Heading: "Internal ID", Type: FieldText},
		{Name: "company_name", Heading: "Company", Type: FieldText},
		{Name: "type", Heading: "Type", Type: FieldEnum},
		{Name: "last_activity", Heading: "Last Activity", Type: FieldDate},
		{Name: "balance", Heading: "Balance", Type: FieldNumeric},
		{Name: "overdue_balance", Heading: "Overdue", Type: FieldNumeric},
		{Name: "days_overdue", Heading: "Days Overdue", Type: FieldNumeric},
	})

	RegisterPreset("price_book", []Descriptor{
		rowNumberField,
		{Name: "product_code", Heading: "Code", Type: FieldText},
		{Name: "product_name", Heading: "Product", Type: FieldText},
		{Name: "price_book_name", Heading: "Price Book", Type: FieldText},
		{Name: "list_price", Heading: "List Price", Type: FieldNumeric},
		{Name: "active_product", Heading: "Active", Type: FieldBool},
	})

	RegisterPreset("tax_transactions", []Descriptor{
		recordNumberField,
		{Name: "transaction_id", Heading: "Transaction ID", Type: FieldText},
		{Name: "customer_name", Heading: "Customer", Type: FieldText},
		{Name: "invoice_date", Heading: "Invoice Date", Type: FieldDate},
		{Name: "transaction_currency", Heading: "Currency", Type: FieldEnum},
		{Name: "sales_amount", Heading: "Sales", Type: FieldNumeric},
		{Name: "tax_amount", Heading: "Tax", Type: FieldNumeric},
		{Name: "void", Heading: "Void", Type: FieldBool},
	})
}
