package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"

	"velam/internal/core"
	"velam/internal/services"
)

func today() string { return core.DateOf(time.Now()).String() }

// addContributionCmd holds the flags for the 'add-contribution' subcommand.
type addContributionCmd struct {
	*app
	date   string
	name   string
	amount string
	first  bool
}

func (*addContributionCmd) Name() string     { return "add-contribution" }
func (*addContributionCmd) Synopsis() string { return "record a member's monthly contribution" }
func (*addContributionCmd) Usage() string {
	return `velam add-contribution -name <member> [-d <YYYY-MM-DD>] [-amount <rupees> | -first]

  Records a contribution. The amount defaults to DEFAULT_CONTRIBUTION, or
  FIRST_MONTH_CONTRIBUTION with -first.
`
}

func (c *addContributionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today(), "contribution date")
	f.StringVar(&c.name, "name", "", "member name")
	f.StringVar(&c.amount, "amount", "", "amount in rupees (default DEFAULT_CONTRIBUTION)")
	f.BoolVar(&c.first, "first", false, "use the first month contribution amount")
}

func (c *addContributionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount := c.amount
	switch {
	case amount != "" && c.first:
		fmt.Fprintln(c.errOut, "Error: -amount and -first are mutually exclusive")
		return subcommands.ExitUsageError
	case c.first:
		amount = strconv.Itoa(c.cfg.FirstMonthContribution)
	case amount == "":
		amount = strconv.Itoa(c.cfg.DefaultContribution)
	}

	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		e, err := svc.AddContribution(ctx, c.date, c.name, amount)
		if err != nil {
			return err
		}
		c.printf("Added contribution #%d: %s paid %s for %s\n", e.ID, e.PersonName, e.Amount, e.Month)
		return nil
	})
}

// addLoanCmd holds the flags for the 'add-loan' subcommand.
type addLoanCmd struct {
	*app
	date      string
	name      string
	principal string
	interest  string
}

func (*addLoanCmd) Name() string     { return "add-loan" }
func (*addLoanCmd) Synopsis() string { return "lend money from the fund" }
func (*addLoanCmd) Usage() string {
	return `velam add-loan -name <borrower> -principal <rupees> [-interest <rupees>] [-d <YYYY-MM-DD>]

  Records an active loan. The interest is counted as fund income from the
  loan date.
`
}

func (c *addLoanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today(), "loan date")
	f.StringVar(&c.name, "name", "", "borrower name")
	f.StringVar(&c.principal, "principal", "", "amount lent")
	f.StringVar(&c.interest, "interest", "0", "interest charged")
}

func (c *addLoanCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		l, err := svc.AddLoan(ctx, c.date, c.name, c.principal, c.interest)
		if err != nil {
			return err
		}
		c.printf("Added loan #%d: %s borrowed %s at %s interest\n", l.ID, l.PersonName, l.Principal, l.Interest)
		return nil
	})
}

// returnLoanCmd holds the flags for the 'return-loan' subcommand.
type returnLoanCmd struct {
	*app
	id int64
}

func (*returnLoanCmd) Name() string     { return "return-loan" }
func (*returnLoanCmd) Synopsis() string { return "mark a loan as paid back" }
func (*returnLoanCmd) Usage() string {
	return `velam return-loan -id <loan id>

  Marks an active loan returned today. Returning a returned or unknown loan
  changes nothing.
`
}

func (c *returnLoanCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "loan id")
}

func (c *returnLoanCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		changed, err := svc.MarkLoanReturned(ctx, c.id)
		if err != nil {
			return err
		}
		if !changed {
			c.printf("No active loan #%d\n", c.id)
			return nil
		}
		l, _ := svc.Ledger().Loan(c.id)
		c.printf("Loan #%d returned on %s\n", l.ID, l.ReturnedDate)
		return nil
	})
}

// addExpenseCmd holds the flags for the 'add-expense' subcommand.
type addExpenseCmd struct {
	*app
	date        string
	typ         string
	description string
	amount      string
}

func (*addExpenseCmd) Name() string     { return "add-expense" }
func (*addExpenseCmd) Synopsis() string { return "record money spent by the fund" }
func (*addExpenseCmd) Usage() string {
	return fmt.Sprintf(`velam add-expense -type <type> -desc <text> -amount <rupees> [-d <YYYY-MM-DD>]

  Records an expense. Types: %s.
`, expenseTypeList())
}

func expenseTypeList() string {
	var names []string
	for _, t := range core.ExpenseTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func (c *addExpenseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today(), "expense date")
	f.StringVar(&c.typ, "type", string(core.Miscellaneous), "expense type")
	f.StringVar(&c.description, "desc", "", "what the money was spent on")
	f.StringVar(&c.amount, "amount", "", "amount in rupees")
}

func (c *addExpenseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		e, err := svc.AddExpense(ctx, c.date, c.typ, c.description, c.amount)
		if err != nil {
			return err
		}
		c.printf("Added expense #%d: %s %s (%s)\n", e.ID, e.Type, e.Amount, e.Description)
		return nil
	})
}

// updateCmd holds the flags for the 'update' subcommand.
type updateCmd struct {
	*app
	kind string
	id   int64
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "edit fields of an entry" }
func (*updateCmd) Usage() string {
	return `velam update -kind <contribution|loan|expense> -id <id> field=value...

  Changes the given fields of an entry, for example:

    velam update -kind loan -id 3 principal=2000 interest=200

  Fields use the stored names: date, personName and amount for
  contributions, date, personName, principal and interest for loans, date,
  type, description and amount for expenses. The month follows the date.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "entry kind")
	f.Int64Var(&c.id, "id", 0, "entry id")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fields, err := parseAssignments(f.Args())
	if err != nil {
		fmt.Fprintf(c.errOut, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		kind, err := core.ParseKind(c.kind)
		if err != nil {
			return err
		}
		changed, err := svc.UpdateEntry(ctx, kind, c.id, fields)
		if err != nil {
			return err
		}
		if !changed {
			c.printf("Nothing to update for %s #%d\n", kind, c.id)
			return nil
		}
		c.printf("Updated %s #%d\n", kind, c.id)
		return nil
	})
}

// parseAssignments turns field=value arguments into a field map.
func parseAssignments(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no field=value given")
	}
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		fields[strings.TrimSpace(k)] = v
	}
	return fields, nil
}

// deleteCmd holds the flags for the 'delete' subcommand.
type deleteCmd struct {
	*app
	kind string
	id   int64
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove an entry" }
func (*deleteCmd) Usage() string {
	return `velam delete -kind <contribution|loan|expense> -id <id>
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "entry kind")
	f.Int64Var(&c.id, "id", 0, "entry id")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withService(ctx, func(ctx context.Context, svc *services.LedgerService) error {
		kind, err := core.ParseKind(c.kind)
		if err != nil {
			return err
		}
		deleted, err := svc.DeleteEntry(ctx, kind, c.id)
		if err != nil {
			return err
		}
		if !deleted {
			c.printf("No %s #%d\n", kind, c.id)
			return nil
		}
		c.printf("Deleted %s #%d\n", kind, c.id)
		return nil
	})
}
