// Package config provides configuration structures for silo components.
//
// Configuration only exists during initialization: constructors in the silo,
// watch, seed, modifiers and rpc packages read these values and build their
// runtime objects from them. Nothing here is consulted after start-up.
//
// # Defaults
//
// Every configuration type has a Default* constructor:
//
//	cfg := config.DefaultSiloConfig()
//	// Name: "silo"
//	// RootName: "root"
//	// Observer: "slog"
//	// Bubble: false
//
// # Configuration Merging
//
// All configuration types support a Merge pattern so loaded files layer over
// defaults:
//
//	cfg := config.DefaultSiloConfig()
//	var loaded config.SiloConfig
//	json.Unmarshal(data, &loaded)
//	cfg.Merge(&loaded)
//
// Merge semantics by field type:
//
//   - Strings: Merge if source is non-empty
//   - Integers: Merge if source is greater than zero
//   - Durations: Merge if source is greater than zero
//   - Booleans with false defaults: Merge if source is true
//   - Slices: Replace if source is non-empty
//
// # File Formats
//
// Struct fields carry json, yaml and toml tags so the same structures decode
// from any of the three formats accepted by store.LoadConfig.
package config
