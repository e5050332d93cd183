package importer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Inventory fields a column can map to.
const (
	FieldName        = "name"
	FieldSKU         = "sku"
	FieldQuantity    = "quantity"
	FieldPrice       = "price"
	FieldCostPrice   = "cost_price"
	FieldLowStock    = "low_stock_threshold"
	FieldDescription = "description"
	FieldUOM         = "uom"
)

var knownFields = map[string]bool{
	FieldName: true, FieldSKU: true, FieldQuantity: true, FieldPrice: true,
	FieldCostPrice: true, FieldLowStock: true, FieldDescription: true, FieldUOM: true,
}

// MappingConfig maps worksheet headers to inventory fields.
type MappingConfig struct {
	Version int                    `yaml:"version"`
	Default *SheetConfig           `yaml:"default"`
	Sheets  map[string]SheetConfig `yaml:"sheets"`
}

// SheetConfig lists, per inventory field, the header spellings accepted for it.
type SheetConfig struct {
	Columns map[string][]string `yaml:"columns"`
}

// DefaultMapping is used when no mapping file is given.
func DefaultMapping() *MappingConfig {
	return &MappingConfig{
		Version: 1,
		Default: &SheetConfig{Columns: map[string][]string{
			FieldName:        {"Name", "Item", "Product", "Item Name"},
			FieldSKU:         {"SKU", "Code", "Item Code", "Barcode"},
			FieldQuantity:    {"Quantity", "Qty", "Stock"},
			FieldPrice:       {"Price", "Sale Price", "Selling Price"},
			FieldCostPrice:   {"Cost Price", "Cost", "Purchase Price"},
			FieldLowStock:    {"Low Stock", "Reorder Level", "Low Stock Threshold"},
			FieldDescription: {"Description", "Notes"},
			FieldUOM:         {"UOM", "Unit"},
		}},
	}
}

// LoadMapping reads a YAML mapping file. An empty path yields DefaultMapping.
func LoadMapping(path string) (*MappingConfig, error) {
	if path == "" {
		return DefaultMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping decodes and checks a YAML mapping.
func ParseMapping(data []byte) (*MappingConfig, error) {
	var m MappingConfig
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if m.Default == nil && len(m.Sheets) == 0 {
		return nil, fmt.Errorf("mapping defines no sheets")
	}
	check := func(where string, sc SheetConfig) error {
		if len(sc.Columns[FieldName]) == 0 {
			return fmt.Errorf("mapping %s: the %q field needs at least one header", where, FieldName)
		}
		for field := range sc.Columns {
			if !knownFields[field] {
				return fmt.Errorf("mapping %s: unknown field %q", where, field)
			}
		}
		return nil
	}
	if m.Default != nil {
		if err := check("default", *m.Default); err != nil {
			return nil, err
		}
	}
	for name, sc := range m.Sheets {
		if err := check("sheet "+name, sc); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// forSheet returns the config for a sheet name, falling back to the default.
func (m *MappingConfig) forSheet(name string) (SheetConfig, bool) {
	for sheet, sc := range m.Sheets {
		if strings.EqualFold(sheet, name) {
			return sc, true
		}
	}
	if m.Default != nil {
		return *m.Default, true
	}
	return SheetConfig{}, false
}

// headerIndex resolves header cells to fields, case-insensitively.
func (sc SheetConfig) headerIndex(headers []string) map[string]int {
	idx := make(map[string]int)
	for col, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		for field, aliases := range sc.Columns {
			if _, taken := idx[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if strings.EqualFold(alias, h) {
					idx[field] = col
					break
				}
			}
		}
	}
	return idx
}
