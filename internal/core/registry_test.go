package core

import (
	"errors"
	"testing"
)

func longDef(key string) SourceDefinition {
	return SourceDefinition{
		Info:   SourceInfo{Key: key, Layout: LayoutLong},
		Schema: SchemaSpec{CodeColumns: []string{"Code"}, Measures: []string{"Deaths"}},
	}
}

func TestSourceDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     SourceDefinition
		wantErr bool
	}{
		{"long ok", longDef("a"), false},
		{"wide ok", SourceDefinition{
			Info:   SourceInfo{Key: "w", Layout: LayoutWide, Measure: "Value"},
			Schema: SchemaSpec{CodeColumns: []string{"Country Code"}},
		}, false},
		{"missing key", longDef(""), true},
		{"long without measures", SourceDefinition{
			Info:   SourceInfo{Key: "a", Layout: LayoutLong},
			Schema: SchemaSpec{CodeColumns: []string{"Code"}},
		}, true},
		{"wide without measure", SourceDefinition{
			Info:   SourceInfo{Key: "w", Layout: LayoutWide},
			Schema: SchemaSpec{CodeColumns: []string{"Code"}},
		}, true},
		{"no code columns", SourceDefinition{
			Info:   SourceInfo{Key: "a", Layout: LayoutLong},
			Schema: SchemaSpec{Measures: []string{"Deaths"}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, k := range []string{"b", "a"} {
		if err := r.Register(longDef(k)); err != nil {
			t.Fatalf("Register(%s): %v", k, err)
		}
	}

	if err := r.Register(longDef("a")); err == nil {
		t.Error("duplicate key should be rejected")
	}
	if got := r.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}

	all := r.All()
	if len(all) != 2 || all[0].Info.Key != "a" || all[1].Info.Key != "b" {
		t.Errorf("All not sorted by key: %+v", all)
	}

	if _, ok := r.Get("c"); ok {
		t.Error("Get(c) should miss")
	}
	if err := r.Require("a", "b"); err != nil {
		t.Errorf("Require(a, b) = %v", err)
	}
	if err := r.Require("a", "c", "d"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Require with missing keys = %v, want ErrUnknownSource", err)
	}
}

func TestValidateColumns(t *testing.T) {
	header := []string{"Entity", "Code", "Year"}

	if err := ValidateColumns("t", header, "Code", "Year"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateColumns("t", header, "Deaths", "Year", "New Cases")
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	var sm *SchemaMismatchError
	if !errors.As(err, &sm) || sm.Column != "Deaths" {
		t.Errorf("first mismatch = %+v, want column Deaths", sm)
	}
}

func TestResolveColumn(t *testing.T) {
	header := []string{"Country Name", "country code", "1990"}

	if i, ok := resolveColumn(header, []string{"Code", "Country Code"}); !ok || i != 1 {
		t.Errorf("resolveColumn = %d, %v; want 1, true", i, ok)
	}
	if _, ok := resolveColumn(header, []string{"ISO3"}); ok {
		t.Error("resolveColumn should miss")
	}
}

func TestValidateUnique(t *testing.T) {
	if err := validateUnique("t", []string{"A", "", "B", ""}); err != nil {
		t.Errorf("blank columns may repeat: %v", err)
	}
	if err := validateUnique("t", []string{"ART", "Year", "ART"}); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("duplicate column = %v, want schema mismatch", err)
	}
}
