// Package config loads and validates Wavecue Core configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file,
// then WAVECUE_* environment variable overrides. Validation runs last
// so every layer is checked together.
package config
