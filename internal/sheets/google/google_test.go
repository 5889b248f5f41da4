package google

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"velam/internal/core"
	"velam/internal/ledger"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "test-id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "test-id",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestClient_WriteReportWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheet: "Report"}
	if err := c.WriteReport(context.Background(), ledger.Report{}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestReportRows(t *testing.T) {
	snap := ledger.Snapshot{
		Contributions: []core.Contribution{
			{ID: 1, Date: core.NewDate(2024, 1, 15), PersonName: "Ravi", Amount: core.NewAmount(500), Month: "2024-01"},
		},
		Loans: []core.Loan{
			{ID: 2, Date: core.NewDate(2024, 2, 1), PersonName: "Anu", Principal: core.NewAmount(1000), Interest: core.NewAmount(50), Status: core.StatusActive},
		},
	}
	r := ledger.BuildReport(snap, 5, time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC))

	rows := reportRows(r)

	if got := rows[0][1]; got != "2024-02-02T10:00:00Z" {
		t.Errorf("generated at cell = %v", got)
	}
	if got := rows[8]; got[0] != "Available balance" || got[1] != float64(-450) {
		t.Errorf("balance row = %v", got)
	}
	// header, two months, then blank, title, header, one borrower
	if len(rows) != 12+2+3+1 {
		t.Fatalf("got %d rows: %v", len(rows), rows)
	}
	if got := rows[12]; got[0] != "2024-01" || got[1] != float64(500) {
		t.Errorf("january row = %v", got)
	}
	if got := rows[13]; got[0] != "2024-02" || got[2] != float64(1000) || got[4] != float64(50) {
		t.Errorf("february row = %v", got)
	}
	if got := rows[len(rows)-1]; got[0] != "Anu" || got[1] != 1 {
		t.Errorf("borrower row = %v", got)
	}
}
