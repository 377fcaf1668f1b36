// Package config holds the calbook-cli configuration.
//
//   - spec.go: CLIConfig, read from ~/.calbook/cli.yaml
//   - default.go: default values and paths
//   - loader.go: layered loading through confloader
//   - verify.go: validation
//   - sanitize.go: masking for display
package config
