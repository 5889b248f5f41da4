// Command velam manages the village fund ledger from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"velam/internal/cli"
	"velam/internal/config"
)

func main() {
	cli.LoadEnvFile()

	a := newApp(config.Load())
	flag.BoolVar(&a.plain, "plain", false, "print markdown as is instead of rendering it for the terminal")
	flag.BoolVar(&a.verbose, "v", false, "log at LOG_LEVEL instead of warnings only")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander, a)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// register adds the ledger subcommands, grouped as they appear in help.
func register(c *subcommands.Commander, a *app) {
	c.Register(&addContributionCmd{app: a}, "entries")
	c.Register(&addLoanCmd{app: a}, "entries")
	c.Register(&returnLoanCmd{app: a}, "entries")
	c.Register(&addExpenseCmd{app: a}, "entries")
	c.Register(&updateCmd{app: a}, "entries")
	c.Register(&deleteCmd{app: a}, "entries")

	c.Register(&dashboardCmd{app: a}, "reports")
	c.Register(&listCmd{app: a}, "reports")
	c.Register(&borrowersCmd{app: a}, "reports")
	c.Register(&reportCmd{app: a}, "reports")
	c.Register(&chartCmd{app: a}, "reports")

	c.Register(&exportCmd{app: a}, "export")
}
