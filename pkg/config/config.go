// Package config models the two external key/value stores named in §6:
// Builtins, a map of defines injected by the driver before compilation
// begins, and Config, the map populated during C4 by `config { key =
// expr; ... }` directives. Keys are dotted strings (e.g.
// "linker.fill_byte") so a single directive can target a nested section
// the same way a resolved identifier addresses a namespace member.
package config

import (
	"github.com/wiz-lang/wiz/pkg/ast"
)

// Builtins holds the `name -> Expression` map the driver injects before
// compilation (§6 "Config / defines"), consulted by the `has_def`/
// `get_def` intrinsic lets.
type Builtins struct {
	values map[string]ast.Expression
}

// NewBuiltins constructs an empty defines table.
func NewBuiltins() *Builtins {
	return &Builtins{values: make(map[string]ast.Expression)}
}

// Set injects or overwrites a single define. Key is normalized through
// Path so that e.g. "platform.rom_bank_count" always collides with
// itself regardless of how a caller assembled the string.
func (b *Builtins) Set(key string, value ast.Expression) {
	b.values[ParsePath(key).String()] = value
}

// HasDef implements the `has_def("k")` intrinsic.
func (b *Builtins) HasDef(key string) bool {
	_, ok := b.values[ParsePath(key).String()]
	return ok
}

// GetDef implements the `get_def("k", default)` intrinsic: returns the
// stored define, or def if the key is absent.
func (b *Builtins) GetDef(key string, def ast.Expression) ast.Expression {
	if v, ok := b.values[ParsePath(key).String()]; ok {
		return v
	}
	//
	return def
}

// Config accumulates `config { key = expr; ... }` directive entries
// during C4 (§5 "The Config object is populated by the config {...}
// directive during C4"). Keys are dotted paths so a directive can target
// a nested section, e.g. `config { linker.fill_byte = 0xFF; }`.
type Config struct {
	values map[string]ast.Expression
	order  []string
}

// NewConfig constructs an empty config accumulator.
func NewConfig() *Config {
	return &Config{values: make(map[string]ast.Expression)}
}

// Set records key = value, as reduced by the `config {}` directive's
// statement handling in C4. A later directive for the same key
// overwrites the earlier one, matching ordinary assignment semantics;
// order is preserved for deterministic dumps.
func (c *Config) Set(key string, value ast.Expression) {
	key = ParsePath(key).String()
	if _, ok := c.values[key]; !ok {
		c.order = append(c.order, key)
	}
	//
	c.values[key] = value
}

// Get returns the reduced expression bound to key, and whether it was
// present.
func (c *Config) Get(key string) (ast.Expression, bool) {
	v, ok := c.values[ParsePath(key).String()]
	return v, ok
}

// Keys returns every configured key in first-set order.
func (c *Config) Keys() []string {
	return append([]string(nil), c.order...)
}
