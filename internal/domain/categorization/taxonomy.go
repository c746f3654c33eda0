package categorization

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a spend bucket an expense can be booked against.
type Category string

const (
	CategoryMaterials Category = "materials"
	CategoryTools     Category = "tools"
	CategoryLabor     Category = "labor"
	CategoryPermits   Category = "permits"
	CategoryUtilities Category = "utilities"
	CategoryTransport Category = "transport"
	// CategoryOther is the catch-all. It never appears in a Taxonomy.
	CategoryOther Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryMaterials: {},
	CategoryTools:     {},
	CategoryLabor:     {},
	CategoryPermits:   {},
	CategoryUtilities: {},
	CategoryTransport: {},
}

// Valid reports whether c is one of the fixed categories, including other.
func (c Category) Valid() bool {
	if c == CategoryOther {
		return true
	}
	_, ok := knownCategories[c]
	return ok
}

var (
	ErrEmptyTaxonomy   = errors.New("taxonomy has no categories")
	ErrUnknownCategory = errors.New("unknown category")
)

// CategoryKeywords lists the lowercase keywords that select a category.
type CategoryKeywords struct {
	Category Category `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is the ordered keyword table. Expenses are emitted in this order.
type Taxonomy []CategoryKeywords

// DefaultTaxonomy returns the built-in keyword table. Callers get a fresh copy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{CategoryMaterials, []string{"lumber", "wood", "plywood", "drywall", "concrete", "cement", "brick", "tile", "paint", "insulation", "shingle", "nails", "screws"}},
		{CategoryTools, []string{"tool", "drill", "saw", "hammer", "wrench", "ladder", "sander", "blade"}},
		{CategoryLabor, []string{"labor", "labour", "contractor", "subcontract", "wages", "payroll", "hourly"}},
		{CategoryPermits, []string{"permit", "inspection", "license", "zoning"}},
		{CategoryUtilities, []string{"electric", "water", "sewer", "power", "utility", "internet"}},
		{CategoryTransport, []string{"fuel", "gas", "diesel", "freight", "delivery", "shipping", "truck", "mileage", "parking", "toll"}},
	}
}

type taxonomyFile struct {
	Categories Taxonomy `yaml:"categories"`
}

// LoadTaxonomy reads a YAML keyword table of the form
//
//	categories:
//	  - category: materials
//	    keywords: [lumber, plywood]
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return ParseTaxonomy(data)
}

// ParseTaxonomy decodes and validates a YAML keyword table.
func ParseTaxonomy(data []byte) (Taxonomy, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}

	t := file.Categories.normalized()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that every entry names a known category other than other.
func (t Taxonomy) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTaxonomy
	}
	seen := make(map[Category]struct{}, len(t))
	for _, entry := range t {
		if entry.Category == CategoryOther || !entry.Category.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, entry.Category)
		}
		if _, dup := seen[entry.Category]; dup {
			return fmt.Errorf("duplicate category %q in taxonomy", entry.Category)
		}
		seen[entry.Category] = struct{}{}
	}
	return nil
}

// normalized lowercases and trims keywords, dropping blanks and duplicates.
func (t Taxonomy) normalized() Taxonomy {
	out := make(Taxonomy, 0, len(t))
	for _, entry := range t {
		keywords := make([]string, 0, len(entry.Keywords))
		seen := make(map[string]struct{}, len(entry.Keywords))
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
		}
		out = append(out, CategoryKeywords{
			Category: Category(strings.ToLower(strings.TrimSpace(string(entry.Category)))),
			Keywords: keywords,
		})
	}
	return out
}
