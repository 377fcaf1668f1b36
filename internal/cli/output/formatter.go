package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Format is an output format name.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// ParseFormat validates a format name. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// Formatter writes data in one format.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// Options tune table rendering. JSON and YAML ignore them.
type Options struct {
	Wide     bool
	Location *time.Location
}

// NewFormatter returns the formatter for format. Unknown formats fall back
// to a table.
func NewFormatter(format Format, opts Options) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{Wide: opts.Wide, Location: opts.Location}
	}
}
