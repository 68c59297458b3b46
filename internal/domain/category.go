package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Category classifies a hypothesis by the kind of opportunity it claims.
// The set is open: unknown categories fall back to baseline values.
type Category string

const (
	CategoryAutomation  Category = "automation"
	CategoryIntegration Category = "integration"
	CategoryAnalytics   Category = "analytics"
	CategoryMigration   Category = "migration"
	CategorySecurity    Category = "security"
	CategoryExpansion   Category = "expansion"
)

// CategoryProfile holds the fixed valuation attributes of a category.
// Weight feeds the information-gain ranking (1.0 baseline up to 1.5 for the
// highest-value categories); BaseValue is the monetary anchor for the
// estimated opportunity value.
type CategoryProfile struct {
	Weight    float64 `yaml:"weight" json:"weight"`
	BaseValue float64 `yaml:"base_value" json:"base_value"`
}

const (
	defaultCategoryWeight    = 1.0
	defaultCategoryBaseValue = 10000
)

// CategoryTable maps categories to their valuation profiles.
type CategoryTable map[Category]CategoryProfile

// DefaultCategoryTable returns the built-in valuation table.
func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		CategoryAutomation:  {Weight: 1.5, BaseValue: 50000},
		CategoryIntegration: {Weight: 1.3, BaseValue: 35000},
		CategoryAnalytics:   {Weight: 1.2, BaseValue: 30000},
		CategoryMigration:   {Weight: 1.2, BaseValue: 40000},
		CategorySecurity:    {Weight: 1.1, BaseValue: 25000},
		CategoryExpansion:   {Weight: 1.0, BaseValue: 20000},
	}
}

// LoadCategoryTable reads a valuation table from a YAML file. Entries with
// missing fields inherit the baseline values.
func LoadCategoryTable(path string) (CategoryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category table: %w", err)
	}

	var raw map[Category]CategoryProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse category table: %w", err)
	}

	table := make(CategoryTable, len(raw))
	for cat, profile := range raw {
		if profile.Weight <= 0 {
			profile.Weight = defaultCategoryWeight
		}
		if profile.BaseValue <= 0 {
			profile.BaseValue = defaultCategoryBaseValue
		}
		table[cat] = profile
	}
	return table, nil
}

// Weight returns the ranking weight for a category, 1.0 for unknown ones.
func (t CategoryTable) Weight(c Category) float64 {
	if p, ok := t[c]; ok && p.Weight > 0 {
		return p.Weight
	}
	return defaultCategoryWeight
}

// BaseValue returns the monetary anchor for a category.
func (t CategoryTable) BaseValue(c Category) float64 {
	if p, ok := t[c]; ok && p.BaseValue > 0 {
		return p.BaseValue
	}
	return defaultCategoryBaseValue
}
