package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/calbook-go/internal/telemetry/logger"
)

// ExecFunc runs one parsed command line.
type ExecFunc func(ctx context.Context, args []string) error

// Config configures a REPL.
type Config struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Exec runs every line that is not a built-in.
	Exec ExecFunc
	// Prompt is called before each line. Nil shows "> ".
	Prompt func() string

	History   *History
	Completer *Completer
	Logger    logger.Logger
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     *bufio.Reader
	output    io.Writer
	errOutput io.Writer
	exec      ExecFunc
	prompt    func() string
	completer *Completer
	history   *History
	logger    logger.Logger
}

// New creates a new REPL instance.
func New(cfg Config) *REPL {
	r := &REPL{
		output:    cfg.Out,
		errOutput: cfg.Err,
		exec:      cfg.Exec,
		prompt:    cfg.Prompt,
		completer: cfg.Completer,
		history:   cfg.History,
		logger:    cfg.Logger,
	}
	if b, ok := cfg.In.(*bufio.Reader); ok {
		r.input = b
	} else {
		r.input = bufio.NewReader(cfg.In)
	}
	if r.errOutput == nil {
		r.errOutput = r.output
	}
	if r.prompt == nil {
		r.prompt = func() string { return "> " }
	}
	if r.completer == nil {
		r.completer = NewCompleter(nil)
	}
	if r.history == nil {
		r.history = NewHistory("", DefaultHistorySize)
	}
	if r.logger == nil {
		r.logger = logger.Discard()
	}
	return r
}

// Run reads lines until exit, end of input or ctx is done. Errors of
// single commands are printed and do not stop the loop.
func (r *REPL) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt())

		line, err := r.input.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line != "" {
			if done := r.handle(ctx, line); done {
				return nil
			}
		}
		if eof {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

// handle runs one non-empty line and reports whether the loop should end.
func (r *REPL) handle(ctx context.Context, line string) bool {
	r.history.Add(line)

	if prefix, ok := strings.CutSuffix(line, "?"); ok {
		for _, s := range r.completer.Complete(strings.TrimLeft(prefix, " ")) {
			fmt.Fprintln(r.output, "  "+s)
		}
		return false
	}

	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.errOutput, "error: %v\n", err)
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
		}
		return false
	}

	if r.exec == nil {
		return false
	}
	if err := r.exec(ctx, args); err != nil {
		r.logger.Debug("command failed", "command", args[0], "error", err)
		fmt.Fprintf(r.errOutput, "error: %v\n", err)
	}
	return false
}

// SplitArgs splits a line into arguments. Single and double quotes group
// words, and a backslash escapes the next character outside single quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, ch := range line {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
			inArg = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteRune(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inArg = true
		case ch == ' ' || ch == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(ch)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inArg {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}
