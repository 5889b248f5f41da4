package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"

	"velam/internal/config"
)

type testApp struct {
	*app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		DataBackend:            config.BackendSQLite,
		SQLiteDBPath:           filepath.Join(t.TempDir(), "velam.db"),
		AMQPExchange:           "velam",
		AMQPQueue:              "ledger_changes",
		GoogleReportSheet:      "Report",
		ExportInterval:         time.Minute,
		TopBorrowersLimit:      5,
		DefaultContribution:    500,
		FirstMonthContribution: 100,
		TotalMembers:           11,
		LogLevel:               "info",
	}
	ta := &testApp{app: newApp(cfg), stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	ta.out, ta.errOut, ta.plain = ta.stdout, ta.stderr, true
	return ta
}

// run executes one subcommand with args and returns its stdout.
func (ta *testApp) run(t *testing.T, cmd subcommands.Command, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	ta.stdout.Reset()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	status := cmd.Execute(context.Background(), fs)
	return ta.stdout.String(), status
}

func TestAddContributionDefaults(t *testing.T) {
	ta := newTestApp(t)

	out, status := ta.run(t, &addContributionCmd{app: ta.app}, "-name", "Ravi", "-d", "2024-01-15")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr: %s", status, ta.stderr)
	}
	if !strings.Contains(out, "Ravi paid 500 for 2024-01") {
		t.Errorf("output = %q", out)
	}

	out, _ = ta.run(t, &addContributionCmd{app: ta.app}, "-name", "Anu", "-d", "2024-01-20", "-first")
	if !strings.Contains(out, "Anu paid 100") {
		t.Errorf("first month output = %q", out)
	}

	if _, status := ta.run(t, &addContributionCmd{app: ta.app}, "-name", "Anu", "-amount", "5", "-first"); status != subcommands.ExitUsageError {
		t.Errorf("-amount with -first: status = %v, want usage error", status)
	}
}

func TestInvalidInputIsUsageError(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		name string
		cmd  subcommands.Command
		args []string
	}{
		{"negative principal", &addLoanCmd{app: ta.app}, []string{"-name", "Anu", "-principal", "-5"}},
		{"bad date", &addExpenseCmd{app: ta.app}, []string{"-desc", "rope", "-amount", "10", "-d", "2024-13-01"}},
		{"unknown expense type", &addExpenseCmd{app: ta.app}, []string{"-type", "Travel", "-desc", "bus", "-amount", "10"}},
		{"unknown kind", &deleteCmd{app: ta.app}, []string{"-kind", "goat", "-id", "1"}},
		{"unknown field", &updateCmd{app: ta.app}, []string{"-kind", "loan", "-id", "1", "status=RETURNED"}},
		{"missing assignment", &updateCmd{app: ta.app}, []string{"-kind", "loan", "-id", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, status := ta.run(t, tt.cmd, tt.args...); status != subcommands.ExitUsageError {
				t.Errorf("status = %v, want usage error; stderr: %s", status, ta.stderr)
			}
		})
	}
}

func TestLoanLifecycleAndReports(t *testing.T) {
	ta := newTestApp(t)

	steps := []struct {
		cmd  subcommands.Command
		args []string
	}{
		{&addContributionCmd{app: ta.app}, []string{"-name", "Ravi", "-d", "2024-01-15", "-amount", "1000"}},
		{&addLoanCmd{app: ta.app}, []string{"-name", "Anu", "-d", "2024-01-20", "-principal", "200", "-interest", "20"}},
		{&returnLoanCmd{app: ta.app}, []string{"-id", "2"}},
		{&addExpenseCmd{app: ta.app}, []string{"-type", "sheep purchase", "-desc", "two lambs", "-amount", "300", "-d", "2024-02-02"}},
		{&updateCmd{app: ta.app}, []string{"-kind", "expense", "-id", "3", "amount=250"}},
	}
	for _, s := range steps {
		if out, status := ta.run(t, s.cmd, s.args...); status != subcommands.ExitSuccess {
			t.Fatalf("%s %v: status %v, out %q, stderr %s", s.cmd.Name(), s.args, status, out, ta.stderr)
		}
	}

	out, _ := ta.run(t, &dashboardCmd{app: ta.app})
	// 1000 + 20 - 200 + 200 - 250
	if !strings.Contains(out, "**₹770.00**") {
		t.Errorf("dashboard:\n%s", out)
	}

	out, _ = ta.run(t, &listCmd{app: ta.app}, "-kind", "loan")
	if !strings.Contains(out, "| Returned |") || strings.Contains(out, "# Contributions") {
		t.Errorf("loan list:\n%s", out)
	}

	out, _ = ta.run(t, &borrowersCmd{app: ta.app})
	if !strings.Contains(out, "1. Anu - **1** time") {
		t.Errorf("borrowers:\n%s", out)
	}

	out, _ = ta.run(t, &reportCmd{app: ta.app})
	if !strings.Contains(out, "| 2024-02 | ₹0.00 | ₹0.00 |") {
		t.Errorf("report:\n%s", out)
	}

	out, _ = ta.run(t, &chartCmd{app: ta.app}, "-width", "10")
	if strings.Count(out, "\n") < 2 {
		t.Errorf("chart:\n%s", out)
	}

	out, _ = ta.run(t, &returnLoanCmd{app: ta.app}, "-id", "2")
	if !strings.Contains(out, "No active loan #2") {
		t.Errorf("second return = %q", out)
	}

	out, _ = ta.run(t, &deleteCmd{app: ta.app}, "-kind", "contribution", "-id", "1")
	if !strings.Contains(out, "Deleted contribution #1") {
		t.Errorf("delete = %q", out)
	}
}

func TestExportDir(t *testing.T) {
	ta := newTestApp(t)
	if _, status := ta.run(t, &addContributionCmd{app: ta.app}, "-name", "Ravi", "-d", "2024-01-15"); status != subcommands.ExitSuccess {
		t.Fatalf("add: %v %s", status, ta.stderr)
	}

	dir := t.TempDir()
	out, status := ta.run(t, &exportCmd{app: ta.app}, "-dir", dir)
	if status != subcommands.ExitSuccess {
		t.Fatalf("export: %v %s", status, ta.stderr)
	}
	if strings.Count(out, "Wrote ") != 3 {
		t.Errorf("export output = %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "velam_contributions.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"personName":"Ravi"`) {
		t.Errorf("exported contributions = %s", data)
	}

	if _, status := ta.run(t, &exportCmd{app: ta.app}); status != subcommands.ExitUsageError {
		t.Errorf("export without target: status = %v", status)
	}
	if _, status := ta.run(t, &exportCmd{app: ta.app}, "-sheet"); status != subcommands.ExitFailure {
		t.Errorf("export -sheet without spreadsheet: status = %v", status)
	}
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{args: []string{"amount=250", "description=two lambs"}, want: map[string]string{"amount": "250", "description": "two lambs"}},
		{args: []string{"returnedDate="}, want: map[string]string{"returnedDate": ""}},
		{args: []string{"amount"}, wantErr: true},
		{args: []string{"=5"}, wantErr: true},
		{args: nil, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAssignments(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAssignments(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseAssignments(%v) = %v, want %v", tt.args, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("parseAssignments(%v)[%q] = %q, want %q", tt.args, k, got[k], v)
			}
		}
	}
}
