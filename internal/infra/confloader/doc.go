// Package confloader layers configuration sources with koanf.
//
// Priority, highest first:
//
//  1. Overrides (command-line flags)
//  2. Environment variables (CALBOOK_ prefix)
//  3. The YAML file
//  4. Defaults
//
// Environment names map to keys by lowercasing and turning a double
// underscore into a section separator: CALBOOK_REDIS__ADDR is redis.addr
// and CALBOOK_STATE_DIR is state_dir.
//
// Watcher reports edits to a configuration file, including editors that
// save by renaming a temporary file over it.
package confloader
