package repl

import (
	"slices"
	"strings"

	"github.com/urfave/cli/v2"
)

// Builtins are the commands the REPL handles itself.
var Builtins = []string{"exit", "history", "quit"}

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over command paths such as
// "password change". The built-ins are always included.
func NewCompleter(commands []string) *Completer {
	all := append(slices.Clone(commands), Builtins...)
	slices.Sort(all)
	return &Completer{commands: slices.Compact(all)}
}

// CommandPaths lists every visible command path of cmds, parents first.
func CommandPaths(cmds []*cli.Command) []string {
	var paths []string
	var walk func(prefix string, cmds []*cli.Command)
	walk = func(prefix string, cmds []*cli.Command) {
		for _, c := range cmds {
			if c.Hidden {
				continue
			}
			path := prefix + c.Name
			paths = append(paths, path)
			walk(path+" ", c.Subcommands)
		}
	}
	walk("", cmds)
	return paths
}

// Complete returns the commands starting with prefix, sorted. An empty
// prefix returns every top-level command.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if prefix == "" && strings.Contains(cmd, " ") {
			continue
		}
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
