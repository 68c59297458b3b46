package domain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCategoryTableDefaults(t *testing.T) {
	table := DefaultCategoryTable()

	if got := table.Weight(CategoryAutomation); got != 1.5 {
		t.Errorf("automation weight = %f, want 1.5", got)
	}
	if got := table.BaseValue(CategoryAutomation); got != 50000 {
		t.Errorf("automation base value = %f, want 50000", got)
	}

	// Unknown categories fall back to baseline.
	if got := table.Weight("esoteric"); got != 1.0 {
		t.Errorf("unknown weight = %f, want 1.0", got)
	}
	if got := table.BaseValue("esoteric"); got != 10000 {
		t.Errorf("unknown base value = %f, want 10000", got)
	}
}

func TestLoadCategoryTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	data := `
automation:
  weight: 2.0
  base_value: 80000
compliance:
  weight: 1.4
partial: {}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadCategoryTable(path)
	if err != nil {
		t.Fatalf("LoadCategoryTable: %v", err)
	}

	if got := table.Weight(CategoryAutomation); got != 2.0 {
		t.Errorf("automation weight = %f, want 2.0", got)
	}
	if got := table.BaseValue(CategoryAutomation); got != 80000 {
		t.Errorf("automation base value = %f, want 80000", got)
	}
	// Missing fields inherit baselines.
	if got := table.BaseValue("compliance"); got != 10000 {
		t.Errorf("compliance base value = %f, want baseline 10000", got)
	}
	if got := table.Weight("partial"); got != 1.0 {
		t.Errorf("partial weight = %f, want baseline 1.0", got)
	}
}

func TestLoadCategoryTableMissingFile(t *testing.T) {
	if _, err := LoadCategoryTable(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
