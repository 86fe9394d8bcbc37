package config

// ModifierConfig declares a modifier to attach to a root slot.
//
// Type selects a builder from the modifiers registry ("set", "increment",
// "toggle", "append", "expr", "json-patch", "merge-patch"). Kind is "node"
// (default) or "indexed". Expr is only read by the "expr" builder; Args
// carries builder specific parameters such as the increment step.
//
// Example YAML:
//
//	modifiers:
//	  - slot: count
//	    name: increment
//	    type: expr
//	    expr: current + payload
//	  - slot: list
//	    name: double
//	    kind: indexed
//	    type: expr
//	    expr: current * 2
type ModifierConfig struct {
	Slot string         `json:"slot" yaml:"slot" toml:"slot"`
	Name string         `json:"name" yaml:"name" toml:"name"`
	Kind string         `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Type string         `json:"type" yaml:"type" toml:"type"`
	Expr string         `json:"expr,omitempty" yaml:"expr,omitempty" toml:"expr,omitempty"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
}

// Modifier kinds accepted in ModifierConfig.Kind.
const (
	ModifierKindNode    = "node"
	ModifierKindIndexed = "indexed"
)

// KindOrDefault returns Kind, or ModifierKindNode when unset.
func (c *ModifierConfig) KindOrDefault() string {
	if c.Kind == "" {
		return ModifierKindNode
	}
	return c.Kind
}
