// Package config defines the format-agnostic configuration model for the
// pipeline, along with the Loader interface for reading it from a concrete
// format.
//
// The config.Model is the single source of truth consumed by the registry
// (filter enablement), the require filter (file extensions), and individual
// filters (feature toggles). The concrete HCL implementation of the Loader
// interface lives in a separate package.
package config
