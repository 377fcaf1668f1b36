// Package output renders command results for calbook-cli.
//
// Results are rendered as a table (default), JSON or YAML. Tables are built
// by reflection from json tags; a `table:"-"` tag hides a field and
// `table:"wide"` shows it only with --wide. Times are shown in the user's
// timezone.
//
// The Spinner animates long backend calls on a terminal.
package output
