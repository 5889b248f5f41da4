package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"velam/internal/cli"
	"velam/internal/ledger"
	"velam/internal/log"
	"velam/internal/services"
	"velam/internal/storage/memory"
)

// exportCmd holds the flags for the 'export' subcommand.
type exportCmd struct {
	*app
	dir   string
	sheet bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the ledger to JSON files or the report spreadsheet" }
func (*exportCmd) Usage() string {
	return `velam export [-dir <directory>] [-sheet]

  -dir writes one <key>.json file per collection, the layout the memory
  backend reads from DATA_DIR. -sheet writes the report to the configured
  Google spreadsheet once, as the worker does.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "directory for the JSON collections")
	f.BoolVar(&c.sheet, "sheet", false, "write the report to the spreadsheet")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dir == "" && !c.sheet {
		fmt.Fprintln(c.errOut, "Error: nothing to export, give -dir or -sheet")
		return subcommands.ExitUsageError
	}
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		if c.dir != "" {
			dst := memory.New()
			if err := svc.Ledger().CopyTo(ctx, dst); err != nil {
				return err
			}
			files, err := memory.WriteFiles(ctx, dst, c.dir)
			if err != nil {
				return err
			}
			for _, name := range files {
				c.printf("Wrote %s\n", name)
			}
		}
		if c.sheet {
			if !c.cfg.ExportEnabled() {
				return fmt.Errorf("GOOGLE_SPREADSHEET_ID is not set")
			}
			writer, err := cli.NewReportWriter(ctx, c.cfg, log.FromContext(ctx))
			if err != nil {
				return err
			}
			report := ledger.BuildReport(svc.Ledger().Snapshot(), c.cfg.TopBorrowersLimit, time.Now())
			if err := writer.WriteReport(ctx, report); err != nil {
				return err
			}
			c.printf("Report written to sheet %q\n", c.cfg.GoogleReportSheet)
		}
		return nil
	})
}
