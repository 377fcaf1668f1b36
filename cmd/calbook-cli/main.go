package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/yndnr/calbook-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		var redirect *command.RedirectError
		if errors.As(err, &redirect) {
			fmt.Fprintln(os.Stderr, redirect.Hint)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
