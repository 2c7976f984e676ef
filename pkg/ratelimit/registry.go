package ratelimit

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry is the static table mapping a limit class name to its quota and
// window. It is read-only at request time; changes go through Reload, which
// swaps the whole table atomically, so there are no per-entry mutation races
// to reason about.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]ClassConfig
}

// DefaultClasses returns the built-in limit tiers.
//
// The wide spread between the "ai"/"payment" tiers and the ordinary "api"
// tier is intentional: operations with high cost-per-call or high fraud
// impact get windows an order of magnitude stricter.
func DefaultClasses() []ClassConfig {
	return []ClassConfig{
		{Name: "api", MaxRequests: 100, Window: 60 * time.Second},
		{Name: "polling", MaxRequests: 300, Window: 60 * time.Second},
		{Name: "sensitive", MaxRequests: 20, Window: 60 * time.Second},
		{Name: "ai", MaxRequests: 5, Window: 3600 * time.Second},
		{Name: "payment", MaxRequests: 3, Window: 3600 * time.Second},
		{Name: "admin", MaxRequests: 50, Window: 60 * time.Second},
	}
}

// NewRegistry creates a registry from the given class configurations.
// Every class must have a non-empty name, MaxRequests > 0 and Window > 0.
func NewRegistry(classes []ClassConfig) (*Registry, error) {
	table, err := buildClassTable(classes)
	if err != nil {
		return nil, err
	}
	return &Registry{classes: table}, nil
}

// Get returns the configuration for the given limit class.
// Returns UnknownClassError if the class is not registered.
func (r *Registry) Get(class string) (ClassConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.classes[class]
	if !ok {
		return ClassConfig{}, NewUnknownClassError(class)
	}
	return cfg, nil
}

// Has reports whether the given limit class is registered.
func (r *Registry) Has(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.classes[class]
	return ok
}

// Classes returns all registered class configurations sorted by name.
func (r *Registry) Classes() []ClassConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ClassConfig, 0, len(r.classes))
	for _, cfg := range r.classes {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LongestWindow returns the longest configured window. The counter reaper
// uses it as the purge horizon: records whose window started earlier than
// now minus the longest window carry no further meaning.
func (r *Registry) LongestWindow() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var longest time.Duration
	for _, cfg := range r.classes {
		if cfg.Window > longest {
			longest = cfg.Window
		}
	}
	return longest
}

// Reload replaces the entire class table. The swap is atomic: concurrent
// Get calls see either the old table or the new one, never a mix.
// Counter records already open keep the MaxRequests snapshot taken at
// record creation until their window resets.
func (r *Registry) Reload(classes []ClassConfig) error {
	table, err := buildClassTable(classes)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.classes = table
	r.mu.Unlock()
	return nil
}

// buildClassTable validates class configurations and builds the lookup table.
func buildClassTable(classes []ClassConfig) (map[string]ClassConfig, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("at least one limit class is required")
	}

	table := make(map[string]ClassConfig, len(classes))
	for _, cfg := range classes {
		if cfg.Name == "" {
			return nil, fmt.Errorf("limit class name cannot be empty")
		}
		if cfg.MaxRequests == 0 {
			return nil, fmt.Errorf("limit class %q: max_requests must be > 0", cfg.Name)
		}
		if cfg.Window <= 0 {
			return nil, fmt.Errorf("limit class %q: window must be > 0", cfg.Name)
		}
		if _, dup := table[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate limit class %q", cfg.Name)
		}
		table[cfg.Name] = cfg
	}
	return table, nil
}
