package main

import (
	"context"
	"flag"
	"strings"

	"github.com/google/subcommands"

	"velam/internal/core"
	"velam/internal/render"
	"velam/internal/services"
)

// dashboardCmd holds the flags for the 'dashboard' subcommand.
type dashboardCmd struct {
	*app
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "display fund totals and the available balance" }
func (*dashboardCmd) Usage() string {
	return `velam dashboard
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {}

func (c *dashboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		fund := render.Fund{
			Members:      c.cfg.TotalMembers,
			Contribution: core.NewAmount(int64(c.cfg.DefaultContribution)),
		}
		c.printMarkdown(render.DashboardMarkdown(svc.Ledger().Totals(), fund))
		return nil
	})
}

// listCmd holds the flags for the 'list' subcommand.
type listCmd struct {
	*app
	kind string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list entries, newest first" }
func (*listCmd) Usage() string {
	return `velam list [-kind <contribution|loan|expense>]

  Lists one collection, or all three when -kind is omitted.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "entry kind to list")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		kinds := core.Kinds()
		if c.kind != "" {
			k, err := core.ParseKind(c.kind)
			if err != nil {
				return err
			}
			kinds = []core.Kind{k}
		}

		store := svc.Ledger()
		var sections []string
		for _, k := range kinds {
			switch k {
			case core.KindContribution:
				sections = append(sections, render.ContributionsMarkdown(store.Contributions()))
			case core.KindLoan:
				sections = append(sections, render.LoansMarkdown(store.Loans()))
			case core.KindExpense:
				sections = append(sections, render.ExpensesMarkdown(store.Expenses()))
			}
		}
		c.printMarkdown(strings.Join(sections, "\n"))
		return nil
	})
}

// borrowersCmd holds the flags for the 'borrowers' subcommand.
type borrowersCmd struct {
	*app
	limit int
}

func (*borrowersCmd) Name() string     { return "borrowers" }
func (*borrowersCmd) Synopsis() string { return "rank members by number of loans taken" }
func (*borrowersCmd) Usage() string {
	return `velam borrowers [-n <limit>]
`
}

func (c *borrowersCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", c.cfg.TopBorrowersLimit, "number of borrowers to show")
}

func (c *borrowersCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		c.printMarkdown(render.BorrowersMarkdown(svc.Ledger().TopBorrowers(c.limit)))
		return nil
	})
}

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	*app
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display the month by month summary" }
func (*reportCmd) Usage() string {
	return `velam report

  One row per month with contributions, loans given and returned, interest
  and expenses.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		c.printMarkdown(render.MonthlyReportMarkdown(svc.Ledger().MonthlySummary()))
		return nil
	})
}

// chartCmd holds the flags for the 'chart' subcommand.
type chartCmd struct {
	*app
	width int
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "draw monthly inflow as a bar chart" }
func (*chartCmd) Usage() string {
	return `velam chart [-width <columns>]

  Bars show contributions, returned loans and interest per month.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.width, "width", render.DefaultChartWidth, "length of the longest bar")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		// plain text; markdown rendering would reflow the bars
		c.printf("%s", render.Chart(svc.Ledger().MonthlySummary(), c.width))
		return nil
	})
}
