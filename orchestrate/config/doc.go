// Package config provides configuration structures for the conversation
// graph and its checkpoint backend.
//
// Configuration only exists during initialization. It does not persist into
// runtime components, and validation happens at the point of use (the state
// and checkpoint packages).
//
// # Configuration Merging
//
// All configuration types support a Merge pattern. Loaded configs merge over
// defaults:
//
//	cfg := config.DefaultGraphConfig("therapy")
//	var loaded config.GraphConfig
//	json.Unmarshal(data, &loaded)
//	cfg.Merge(&loaded)
//
// Merge semantics by field type:
//
//   - Strings: Merge if source is non-empty
//   - Integers: Merge if source is greater than zero
//   - Pointers: Merge if source is non-nil
//   - Nested configs: Recursive merge
//
// # Boolean Fields with Non-False Defaults
//
// For boolean fields where the default is true (CheckpointConfig.Preserve),
// a pointer type (*bool) is used with an accessor method to distinguish between:
//
//   - nil: Field not specified, accessor returns default value
//   - &false: Explicitly set to false, accessor returns false
//   - &true: Explicitly set to true, accessor returns true
//
// The field carries a "Nil" suffix (PreserveNil) and the accessor keeps the
// original name (Preserve()). Partial JSON or YAML configs that omit the field
// therefore keep the default instead of unmarshaling to false.
package config
