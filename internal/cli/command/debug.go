package command

import (
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/calbook-go/internal/cli/output"
)

func (r *runner) debugCommand() *cli.Command {
	return &cli.Command{
		Name:   "debug",
		Usage:  "Client diagnostics",
		Hidden: true,
		Subcommands: []*cli.Command{
			{
				Name:  "metrics",
				Usage: "Show request, refresh and notification counters of this session",
				Action: func(c *cli.Context) error {
					env, err := r.environment(c)
					if err != nil {
						return err
					}
					samples, err := env.Metrics.Snapshot()
					if err != nil {
						return fmt.Errorf("gather metrics: %w", err)
					}
					if r.structured(c) {
						return r.render(c, samples)
					}
					table := &output.Table{Headers: []string{"METRIC", "LABELS", "VALUE"}}
					for _, s := range samples {
						table.AddRow(s.Name, formatLabels(s.Labels), fmt.Sprintf("%g", s.Value))
					}
					return r.render(c, table)
				},
			},
		},
	}
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "-"
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ",")
}
