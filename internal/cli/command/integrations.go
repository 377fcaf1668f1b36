package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/calbook-go/internal/cli/guard"
	"github.com/yndnr/calbook-go/internal/cli/output"
	"github.com/yndnr/calbook-go/internal/core/domain"
)

func (r *runner) integrationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "integrations",
		Aliases: []string{"int"},
		Usage:   "Inspect calendar, video and webhook integrations",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List integrations",
				Before: r.require(guard.RouteIntegrations),
				Action: r.integrationsList,
			},
			{
				Name:   "health",
				Usage:  "Check integration health",
				Before: r.require(guard.RouteIntegrations + "/health"),
				Action: r.integrationsHealth,
			},
		},
	}
}

// integrationRow is one line of the combined listing.
type integrationRow struct {
	Kind     string `json:"kind"`
	ID       string `json:"id" table:"wide"`
	Provider string `json:"provider"`
	Account  string `json:"account"`
	Active   bool   `json:"active"`
	Detail   string `json:"detail"`
}

func integrationRows(in *domain.Integrations, loc *time.Location) []integrationRow {
	var rows []integrationRow
	for _, c := range in.Calendars {
		detail := "sync off"
		if c.SyncEnabled {
			detail = "sync on"
		}
		if c.LastSyncAt != nil {
			detail += ", last " + c.LastSyncAt.In(loc).Format(output.TimeLayout)
		}
		if c.TokenExpired {
			detail += ", token expired"
		}
		rows = append(rows, integrationRow{"calendar", c.ID, c.Provider, c.ProviderEmail, c.IsActive, detail})
	}
	for _, v := range in.Video {
		detail := fmt.Sprintf("%d calls today", v.APICallsToday)
		if v.TokenExpired {
			detail += ", token expired"
		}
		rows = append(rows, integrationRow{"video", v.ID, v.Provider, "", v.IsActive, detail})
	}
	for _, w := range in.Webhooks {
		rows = append(rows, integrationRow{"webhook", w.ID, w.Name, w.WebhookURL, w.IsActive, fmt.Sprintf("%d events", len(w.Events))})
	}
	return rows
}

func (r *runner) integrationsList(c *cli.Context) error {
	in, err := busy(r, c, "Loading integrations", func(ctx context.Context) (*domain.Integrations, error) {
		return r.env.API.Integrations(ctx)
	})
	if err != nil {
		return err
	}
	if r.structured(c) {
		return r.render(c, in)
	}
	rows := integrationRows(in, r.env.Location())
	if len(rows) == 0 {
		r.say(c, "No integrations.")
		return nil
	}
	return r.render(c, rows)
}

func (r *runner) integrationsHealth(c *cli.Context) error {
	report, err := busy(r, c, "Checking integrations", func(ctx context.Context) (*domain.HealthReport, error) {
		return r.env.API.IntegrationHealth(ctx)
	})
	if err != nil {
		return err
	}
	if r.structured(c) {
		return r.render(c, report)
	}

	table := &output.Table{Headers: []string{"KIND", "PROVIDER", "HEALTH", "ACTIVE", "TOKEN EXPIRED", "SYNC ERRORS"}}
	add := func(kind string, entries []domain.HealthEntry) {
		for _, e := range entries {
			table.AddRow(kind, e.Provider, e.Health, fmt.Sprint(e.IsActive), fmt.Sprint(e.TokenExpired), fmt.Sprint(e.SyncErrors))
		}
	}
	add("calendar", report.Calendars)
	add("video", report.Video)
	if err := r.render(c, table); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\nOverall: %s\n", report.OverallHealth)
	return nil
}
