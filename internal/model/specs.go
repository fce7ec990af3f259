package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SpecMap is the stored, schema-free form of an item's specifications.
// It is written to and read from the database as JSON text.
type SpecMap map[string]any

// Value implements driver.Valuer.
func (m SpecMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("encoding specifications: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *SpecMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = SpecMap{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scanning specifications: unsupported type %T", src)
	}
	out := SpecMap{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decoding specifications: %w", err)
	}
	*m = out
	return nil
}

// Specifications is the typed view of an item's specification mapping.
// Exactly one implementation exists per ItemType.
type Specifications interface {
	ItemType() ItemType
	Map() SpecMap
}

// Display resolution option that selects the free-text custom value.
const CustomResolution = "custom"

// LaptopSpecs are the specification fields recorded for laptops.
type LaptopSpecs struct {
	CPU               string   `json:"cpu" validate:"required"`
	CPUSpeed          string   `json:"cpu_speed"`
	RAMCapacity       string   `json:"ram_capacity" validate:"required"`
	RAMType           string   `json:"ram_type"`
	RAMSpeed          string   `json:"ram_speed"`
	StorageType       string   `json:"storage_type" validate:"required"`
	StorageSize       string   `json:"storage_size" validate:"required"`
	GPUType           string   `json:"gpu_type"`
	GPUMemory         string   `json:"gpu_memory"`
	DisplayType       string   `json:"display_type"`
	DisplayResolution string   `json:"display_resolution" validate:"required"`
	Features          []string `json:"features"`
	Remarks           string   `json:"remarks"`
}

// ItemType implements Specifications.
func (LaptopSpecs) ItemType() ItemType { return ItemTypeLaptop }

// Map implements Specifications. Features is always a list, never null.
func (s LaptopSpecs) Map() SpecMap {
	if s.Features == nil {
		s.Features = []string{}
	}
	return toSpecMap(s)
}

// SmartphoneSpecs are the specification fields recorded for smartphones.
type SmartphoneSpecs struct {
	Model    string `json:"model" validate:"required"`
	Capacity string `json:"capacity" validate:"required"`
	Remarks  string `json:"remarks,omitempty"`
}

// ItemType implements Specifications.
func (SmartphoneSpecs) ItemType() ItemType { return ItemTypeSmartphone }

// Map implements Specifications.
func (s SmartphoneSpecs) Map() SpecMap {
	return toSpecMap(s)
}

// ParseSpecs decodes a stored mapping into the typed specifications for t.
// Keys that do not belong to t are ignored.
func ParseSpecs(t ItemType, m SpecMap) (Specifications, error) {
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("encoding specifications: %w", err)
	}

	switch t {
	case ItemTypeLaptop:
		var s LaptopSpecs
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("decoding laptop specifications: %w", err)
		}
		if s.Features == nil {
			s.Features = []string{}
		}
		return s, nil
	case ItemTypeSmartphone:
		var s SmartphoneSpecs
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("decoding smartphone specifications: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown item type %q", t)
	}
}

// toSpecMap converts a specs struct into JSON-native map values so that a
// mapping built here compares equal to the same mapping read back from storage.
func toSpecMap(v any) SpecMap {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("encoding %T: %v", v, err))
	}
	m := SpecMap{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("decoding %T: %v", v, err))
	}
	return m
}

// SpecRow is one labelled specification value for display.
type SpecRow struct {
	Label string
	Value string
}

var specLabels = map[string]string{
	"cpu":                "CPU",
	"cpu_speed":          "CPU speed",
	"ram_capacity":       "RAM",
	"ram_type":           "RAM type",
	"ram_speed":          "RAM speed",
	"storage_type":       "Storage type",
	"storage_size":       "Storage",
	"gpu_type":           "GPU",
	"gpu_memory":         "GPU memory",
	"display_type":       "Display",
	"display_resolution": "Resolution",
	"features":           "Features",
	"model":              "Model",
	"capacity":           "Capacity",
	"remarks":            "Remarks",
}

var specOrder = []string{
	"model", "capacity", "cpu", "cpu_speed", "ram_capacity", "ram_type", "ram_speed",
	"storage_type", "storage_size", "gpu_type", "gpu_memory", "display_type",
	"display_resolution", "features", "remarks",
}

var titler = cases.Title(language.English)

// SpecRows lists the non-empty values of m, known keys first in a fixed
// order and any other keys after them sorted by name.
func SpecRows(m SpecMap) []SpecRow {
	var rows []SpecRow
	add := func(key string) {
		v := specValue(m[key])
		if v == "" {
			return
		}
		label, ok := specLabels[key]
		if !ok {
			label = titler.String(strings.ReplaceAll(key, "_", " "))
		}
		rows = append(rows, SpecRow{Label: label, Value: v})
	}

	for _, key := range specOrder {
		if _, ok := m[key]; ok {
			add(key)
		}
	}

	var rest []string
	for key := range m {
		if _, ok := specLabels[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		add(key)
	}
	return rows
}

func specValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			if s := specValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case map[string]any:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
