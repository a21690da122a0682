// Package config loads and validates library configuration.
//
// Configuration comes from TOML or YAML files and environment variables,
// merged in order with later sources overriding earlier ones. A missing
// file is not an error; loaders return nil for absent sources. The typed
// Config builds dispatch strategies and structured loggers from the
// merged result.
package config
