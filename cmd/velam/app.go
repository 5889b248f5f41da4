package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"velam/internal/cli"
	"velam/internal/config"
	"velam/internal/core"
	"velam/internal/log"
	"velam/internal/services"
)

// app carries what every subcommand shares. As a short lived process the
// CLI opens the ledger once per command.
type app struct {
	cfg     *config.Config
	out     io.Writer
	errOut  io.Writer
	plain   bool
	verbose bool
}

func newApp(cfg *config.Config) *app {
	return &app{cfg: cfg, out: os.Stdout, errOut: os.Stderr}
}

func (a *app) logger() *log.Logger {
	level := "warn"
	if a.verbose {
		level = a.cfg.LogLevel
	}
	return cli.SetupLogger(level, log.ComponentCLI, a.errOut)
}

// withService opens the ledger, runs fn and releases everything. Rejected
// input maps to a usage error, anything else to a failure.
func (a *app) withService(ctx context.Context, fn func(context.Context, *services.LedgerService) error) subcommands.ExitStatus {
	if err := a.cfg.Validate(); err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	logger := a.logger()
	ctx = log.NewContext(ctx, logger)
	svc, err := cli.OpenLedgerService(ctx, a.cfg, logger)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := svc.Close(); err != nil {
			fmt.Fprintf(a.errOut, "Error closing ledger: %v\n", err)
		}
	}()

	if err := fn(ctx, svc); err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		if core.IsValidation(err) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *app) printMarkdown(md string) {
	if a.plain {
		fmt.Fprint(a.out, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(a.out, out)
			return
		}
	}
	// fall back to the raw text rather than lose the output
	fmt.Fprint(a.out, md)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
