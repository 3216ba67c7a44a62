package instrument

import (
	"strings"
	"sync"
)

// Matcher tests one identification field.
type Matcher func(field string) bool

// Exact matches the field verbatim.
func Exact(want string) Matcher {
	return func(field string) bool { return field == want }
}

// Prefix matches fields starting with prefix.
func Prefix(prefix string) Matcher {
	return func(field string) bool { return strings.HasPrefix(field, prefix) }
}

// Any matches every field.
func Any() Matcher {
	return func(string) bool { return true }
}

// Rule binds instruments whose make and model match to a driver.
type Rule struct {
	Vendor  Matcher
	Model   Matcher
	Type    InstrumentType
	Factory Factory
}

// Registry is an ordered table of rules. Rules are normally registered
// once at startup; Resolve is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a rule. Nil matchers match anything.
func (r *Registry) Register(rule Rule) {
	if rule.Vendor == nil {
		rule.Vendor = Any()
	}
	if rule.Model == nil {
		rule.Model = Any()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Resolve parses idn and applies the first matching rule. Unmatched
// instruments keep TypeUnknown and no Factory.
func (r *Registry) Resolve(address, idn string) ISpec {
	spec := ParseIDN(address, idn)
	if spec.Make == "" {
		return spec
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.Vendor(spec.Make) && rule.Model(spec.Model) {
			spec.Type = rule.Type
			spec.Factory = rule.Factory
			break
		}
	}
	return spec
}
