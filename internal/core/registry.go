package core

import (
	"fmt"
	"sort"
	"sync"
)

// SchemaSpec describes how a raw source table maps onto canonical columns.
type SchemaSpec struct {
	// CodeColumns lists candidate names for the country-code column, in order.
	CodeColumns []string `yaml:"code_columns"`

	// CountryColumns lists candidate names for the country-name column, in order.
	CountryColumns []string `yaml:"country_columns"`

	// Renames maps source column names to canonical names. A key ending in '*'
	// matches any column with that prefix.
	Renames map[string]string `yaml:"renames"`

	// Drop lists columns that must exist and are removed.
	Drop []string `yaml:"drop"`

	// Measures lists canonical measure columns that must exist after renaming.
	// Only meaningful for long sources.
	Measures []string `yaml:"measures"`
}

// SourceInfo contains display and location information about a source.
type SourceInfo struct {
	Key         string `yaml:"key"`         // Stable logical name: "deaths_new_cases"
	Label       string `yaml:"label"`       // Display name
	File        string `yaml:"file"`        // CSV file name relative to the data directory
	Table       string `yaml:"table"`       // Postgres table name for the postgres driver
	Layout      Layout `yaml:"layout"`      // long or wide
	Measure     string `yaml:"measure"`     // Value column name produced by the unpivot (wide only)
	Attribution string `yaml:"attribution"` // Data provider shown under the chart
}

// SourceDefinition contains everything needed to ingest a source table.
type SourceDefinition struct {
	Info   SourceInfo `yaml:",inline"`
	Schema SchemaSpec `yaml:"schema"`
}

// Validate checks a definition for internal consistency.
func (d SourceDefinition) Validate() error {
	if d.Info.Key == "" {
		return fmt.Errorf("source definition: missing key")
	}
	switch d.Info.Layout {
	case LayoutLong:
		if len(d.Schema.Measures) == 0 {
			return fmt.Errorf("source %s: long layout requires measures", d.Info.Key)
		}
	case LayoutWide:
		if d.Info.Measure == "" {
			return fmt.Errorf("source %s: wide layout requires measure", d.Info.Key)
		}
	default:
		return fmt.Errorf("source %s: unknown layout %q", d.Info.Key, d.Info.Layout)
	}
	if len(d.Schema.CodeColumns) == 0 {
		return fmt.Errorf("source %s: no code columns", d.Info.Key)
	}
	return nil
}

// Registry holds the source definitions known to the process.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]SourceDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]SourceDefinition)}
}

// Register adds a source definition to the registry.
// Returns an error if the definition is invalid or the key is already registered.
func (r *Registry) Register(def SourceDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[def.Info.Key]; exists {
		return fmt.Errorf("source already registered: %s", def.Info.Key)
	}
	r.sources[def.Info.Key] = def
	return nil
}

// Get returns a source definition by key.
// Returns false if not found.
func (r *Registry) Get(key string) (SourceDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.sources[key]
	return def, ok
}

// All returns all registered source definitions sorted by key.
func (r *Registry) All() []SourceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]SourceDefinition, 0, len(r.sources))
	for _, def := range r.sources {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Count returns the number of registered sources.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// Require returns an error naming every key not present in the registry.
func (r *Registry) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := r.Get(k); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrUnknownSource, missing)
	}
	return nil
}
