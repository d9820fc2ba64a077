// Package hcl implements the HCL-specific configuration loader. It parses a
// pipeline configuration file and translates it into the format-agnostic
// model defined in the config package; nothing outside this package touches
// HCL types for configuration purposes.
package hcl
