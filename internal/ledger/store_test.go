package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"velam/internal/core"
	"velam/internal/log"
	"velam/internal/storage"
	"velam/internal/storage/memory"
)

// countingPort records writes and can be told to fail them. It only offers
// per-key saves.
type countingPort struct {
	mem   *memory.Store
	saves int
	fail  error
}

func newCountingPort() *countingPort {
	return &countingPort{mem: memory.New()}
}

func (p *countingPort) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return p.mem.Load(ctx, key)
}

func (p *countingPort) Save(ctx context.Context, key string, value []byte) error {
	p.saves++
	if p.fail != nil {
		return p.fail
	}
	return p.mem.Save(ctx, key, value)
}

func fixedClock(date string) Clock {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return d.Time.Add(15 * time.Hour) }
}

func openTest(t *testing.T, port storage.Port, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	s, err := Open(context.Background(), port, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestAddContributionScenario(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, memory.New())

	c, err := s.AddContribution(ctx, "2024-01-15", " Ravi ", "500")
	if err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if c.PersonName != "Ravi" || c.Month != "2024-01" || c.ID == 0 {
		t.Fatalf("unexpected contribution: %+v", c)
	}
	if got := s.Snapshot().TotalContributions(); !got.Equal(core.NewAmount(500)) {
		t.Fatalf("total contributions = %s, want 500", got)
	}

	months := s.MonthlySummary()
	if len(months) != 1 {
		t.Fatalf("expected one month, got %+v", months)
	}
	m := months[0]
	if m.Month != "2024-01" || !m.Contributions.Equal(core.NewAmount(500)) ||
		!m.LoansGiven.IsZero() || !m.LoansReturned.IsZero() || !m.Interest.IsZero() || !m.Expenses.IsZero() {
		t.Fatalf("unexpected summary: %+v", m)
	}
}

func TestLoanReturnedInLaterMonth(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, memory.New(), WithClock(fixedClock("2024-03-01")))

	l, err := s.AddLoan(ctx, "2024-01-01", "Anu", "1000", "50")
	if err != nil {
		t.Fatalf("AddLoan: %v", err)
	}
	if l.Status != core.StatusActive || l.ReturnedDate != nil {
		t.Fatalf("new loan should be active: %+v", l)
	}
	changed, err := s.MarkLoanReturned(ctx, l.ID)
	if err != nil || !changed {
		t.Fatalf("MarkLoanReturned = %v, %v", changed, err)
	}

	snap := s.Snapshot()
	if !snap.TotalLoansGiven().Equal(core.NewAmount(1000)) || !snap.TotalLoansReturned().Equal(core.NewAmount(1000)) {
		t.Fatalf("given %s returned %s", snap.TotalLoansGiven(), snap.TotalLoansReturned())
	}
	if got := snap.Loans[0].ReturnedDate.String(); got != "2024-03-01" {
		t.Fatalf("returned date = %s", got)
	}

	months := snap.MonthlySummary()
	if len(months) != 2 {
		t.Fatalf("expected two months, got %+v", months)
	}
	jan, mar := months[0], months[1]
	if jan.Month != "2024-01" || !jan.LoansGiven.Equal(core.NewAmount(1000)) || !jan.Interest.Equal(core.NewAmount(50)) || !jan.LoansReturned.IsZero() {
		t.Errorf("unexpected january: %+v", jan)
	}
	if mar.Month != "2024-03" || !mar.LoansReturned.Equal(core.NewAmount(1000)) || !mar.LoansGiven.IsZero() {
		t.Errorf("unexpected march: %+v", mar)
	}
}

func TestMarkLoanReturnedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	port := newCountingPort()
	s := openTest(t, port, WithClock(fixedClock("2024-02-10")))

	l, _ := s.AddLoan(ctx, "2024-02-01", "Anu", "100", "5")
	if _, err := s.MarkLoanReturned(ctx, l.ID); err != nil {
		t.Fatal(err)
	}
	before := port.saves
	first := s.Snapshot()

	for _, id := range []int64{l.ID, 9999} {
		changed, err := s.MarkLoanReturned(ctx, id)
		if err != nil || changed {
			t.Fatalf("MarkLoanReturned(%d) = %v, %v; want no-op", id, changed, err)
		}
	}
	if port.saves != before {
		t.Fatalf("no-op wrote to storage (%d saves, want %d)", port.saves, before)
	}
	if got := s.Snapshot(); got.Loans[0].ReturnedDate.String() != first.Loans[0].ReturnedDate.String() {
		t.Fatalf("returned date moved: %v", got.Loans[0].ReturnedDate)
	}
}

func TestMarkLoanReturnedBeforeLoanDateUsesLoanDate(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, memory.New(), WithClock(fixedClock("2024-01-01")))

	l, _ := s.AddLoan(ctx, "2024-06-01", "Anu", "100", "0")
	if _, err := s.MarkLoanReturned(ctx, l.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Loan(l.ID)
	if got.ReturnedDate.String() != "2024-06-01" {
		t.Fatalf("returned date = %s, want loan date", got.ReturnedDate)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("returned loan invalid: %v", err)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, memory.New())

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"contribution negative", func() error { _, err := s.AddContribution(ctx, "2024-01-01", "Ravi", "-1"); return err }, core.ErrNegativeAmount},
		{"contribution garbage", func() error { _, err := s.AddContribution(ctx, "2024-01-01", "Ravi", "abc"); return err }, core.ErrInvalidAmount},
		{"contribution date", func() error { _, err := s.AddContribution(ctx, "15/01/2024", "Ravi", "1"); return err }, core.ErrInvalidDate},
		{"contribution name", func() error { _, err := s.AddContribution(ctx, "2024-01-01", "  ", "1"); return err }, core.ErrEmptyName},
		{"loan interest", func() error { _, err := s.AddLoan(ctx, "2024-01-01", "Anu", "10", "-2"); return err }, core.ErrNegativeAmount},
		{"expense type", func() error { _, err := s.AddExpense(ctx, "2024-01-01", "Goats", "x", "1"); return err }, core.ErrInvalidExpenseType},
		{"expense description", func() error { _, err := s.AddExpense(ctx, "2024-01-01", "Miscellaneous", " ", "1"); return err }, core.ErrEmptyDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if !core.IsValidation(err) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
		})
	}

	snap := s.Snapshot()
	if len(snap.Contributions)+len(snap.Loans)+len(snap.Expenses) != 0 {
		t.Fatalf("rejected input reached the store: %+v", snap)
	}
}

func TestLoanInterestErrorNamesField(t *testing.T) {
	s := openTest(t, memory.New())
	_, err := s.AddLoan(context.Background(), "2024-01-01", "Anu", "10", "x")
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "interest" {
		t.Fatalf("expected interest validation error, got %v", err)
	}
}

func TestExpenseTypeCanonicalised(t *testing.T) {
	s := openTest(t, memory.New())
	e, err := s.AddExpense(context.Background(), "2024-04-02", "sheep purchase", "two ewes", "3000")
	if err != nil {
		t.Fatal(err)
	}
	if e.Type != core.SheepPurchase || e.Month != "2024-04" {
		t.Fatalf("unexpected expense: %+v", e)
	}
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	port := newCountingPort()
	s := openTest(t, port)

	c, _ := s.AddContribution(ctx, "2024-01-01", "Ravi", "500")
	e, _ := s.AddExpense(ctx, "2024-01-02", "Miscellaneous", "feed", "120")

	changed, err := s.DeleteEntry(ctx, core.KindContribution, c.ID)
	if err != nil || !changed {
		t.Fatalf("DeleteEntry = %v, %v", changed, err)
	}
	saves := port.saves
	for i := 0; i < 2; i++ {
		changed, err = s.DeleteEntry(ctx, core.KindContribution, c.ID)
		if err != nil || changed {
			t.Fatalf("repeated delete = %v, %v", changed, err)
		}
	}
	if port.saves != saves {
		t.Fatalf("repeated delete wrote to storage")
	}
	// an id from another collection is not found
	if changed, _ := s.DeleteEntry(ctx, core.KindLoan, e.ID); changed {
		t.Fatalf("deleted expense id from loans")
	}
	if _, err := s.DeleteEntry(ctx, core.Kind("sheep"), e.ID); !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Contributions) != 0 || len(snap.Expenses) != 1 {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	port := memory.New()
	s := openTest(t, port, WithClock(fixedClock("2024-03-01")))

	s.AddContribution(ctx, "2024-01-15", "Ravi", "500")
	s.AddContribution(ctx, "2024-01-10", "Meena", "100")
	l, _ := s.AddLoan(ctx, "2024-01-01", "Anu", "1000", "50")
	s.AddLoan(ctx, "2024-02-01", "Ravi", "200", "10")
	s.MarkLoanReturned(ctx, l.ID)
	s.AddExpense(ctx, "2024-02-05", "Sheep Purchase", "ram", "2500.75")

	reopened := openTest(t, port)
	want, _ := json.Marshal(s.Snapshot())
	got, _ := json.Marshal(reopened.Snapshot())
	if string(got) != string(want) {
		t.Fatalf("reloaded state differs\n got %s\nwant %s", got, want)
	}

	raw, ok, _ := port.Load(ctx, storage.KeyLoans)
	if !ok {
		t.Fatalf("loans were not persisted")
	}
	var loans []map[string]any
	if err := json.Unmarshal(raw, &loans); err != nil {
		t.Fatal(err)
	}
	if loans[1]["returnedDate"] != nil || loans[0]["status"] != "RETURNED" {
		t.Fatalf("unexpected stored loans: %s", raw)
	}
}

func TestIDsDoNotCollideAfterReload(t *testing.T) {
	ctx := context.Background()
	port := memory.New()
	port.Save(ctx, storage.KeyLoans, []byte(`[{"id":1700000000000,"date":"2024-01-01","personName":"Anu","principal":10,"interest":1,"status":"ACTIVE","returnedDate":null}]`))

	s := openTest(t, port)
	c, err := s.AddContribution(ctx, "2024-01-02", "Ravi", "5")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID <= 1700000000000 {
		t.Fatalf("new id %d collides with loaded ids", c.ID)
	}

	again := openTest(t, port)
	e, _ := again.AddExpense(ctx, "2024-01-03", "Miscellaneous", "rope", "1")
	if e.ID <= c.ID {
		t.Fatalf("id %d not above %d after reload", e.ID, c.ID)
	}
}

func TestOpenRepairsStaleMonths(t *testing.T) {
	ctx := context.Background()
	port := memory.New()
	port.Save(ctx, storage.KeyContributions, []byte(`[{"id":1,"date":"2024-05-03","personName":"Ravi","amount":"500","month":"2024-01"}]`))
	port.Save(ctx, storage.KeyExpenses, []byte(`[{"id":2,"date":"2024-06-09","type":"Miscellaneous","description":"feed","amount":20}]`))

	s := openTest(t, port)
	snap := s.Snapshot()
	if snap.Contributions[0].Month != "2024-05" || snap.Expenses[0].Month != "2024-06" {
		t.Fatalf("months not repaired: %+v %+v", snap.Contributions[0], snap.Expenses[0])
	}
}

func TestOpenRejectsCorruptData(t *testing.T) {
	port := memory.New()
	port.Save(context.Background(), storage.KeyLoans, []byte(`{not json`))
	if _, err := Open(context.Background(), port, WithLogger(log.Discard())); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestStorageFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	port := newCountingPort()
	s := openTest(t, port)

	port.fail = errors.New("disk full")
	c, err := s.AddContribution(ctx, "2024-01-15", "Ravi", "500")
	if !storage.IsStorageError(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if c.ID == 0 {
		t.Fatalf("contribution should still be returned")
	}
	if got := s.Snapshot().TotalContributions(); !got.Equal(core.NewAmount(500)) {
		t.Fatalf("in-memory change lost: %s", got)
	}
}

func TestListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, memory.New())
	s.AddContribution(ctx, "2024-01-10", "A", "1")
	s.AddContribution(ctx, "2024-03-10", "B", "1")
	s.AddContribution(ctx, "2024-02-10", "C", "1")

	var names string
	for _, c := range s.Contributions() {
		names += c.PersonName
	}
	if names != "BCA" {
		t.Fatalf("list order = %s, want BCA", names)
	}
	// stored order is untouched
	if s.Snapshot().Contributions[0].PersonName != "A" {
		t.Fatalf("listing reordered the store")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, memory.New(), WithClock(fixedClock("2024-02-01")))
	l, _ := s.AddLoan(ctx, "2024-01-01", "Anu", "10", "1")
	s.MarkLoanReturned(ctx, l.ID)

	snap := s.Snapshot()
	snap.Loans[0].PersonName = "changed"
	*snap.Loans[0].ReturnedDate = core.NewDate(2030, 1, 1)

	got, _ := s.Loan(l.ID)
	if got.PersonName != "Anu" || got.ReturnedDate.String() != "2024-02-01" {
		t.Fatalf("snapshot aliases store: %+v", got)
	}
}

func TestCopyToWritesRepairedCollections(t *testing.T) {
	ctx := context.Background()
	src := memory.New()
	stale := `[{"id":1,"date":"2024-03-05","personName":"Ravi","amount":500,"month":"2024-02"}]`
	if err := src.Save(ctx, storage.KeyContributions, []byte(stale)); err != nil {
		t.Fatal(err)
	}
	s := openTest(t, src)

	dst := newCountingPort()
	if err := s.CopyTo(ctx, dst); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if dst.saves != 3 {
		t.Fatalf("saves = %d, want one per collection", dst.saves)
	}
	copied := openTest(t, dst)
	cs := copied.Contributions()
	if len(cs) != 1 || cs[0].Month != "2024-03" {
		t.Fatalf("copied contributions = %+v", cs)
	}
	if loans, _, _ := dst.Load(ctx, storage.KeyLoans); string(loans) != "[]" {
		t.Errorf("empty loans copied as %s, want []", loans)
	}
}

func TestConcurrentWriterConflictKeepsFirstSave(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "velam.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	first := openTest(t, repo)
	second := openTest(t, repo)

	if _, err := first.AddContribution(ctx, "2024-01-15", "Ravi", "500"); err != nil {
		t.Fatalf("first writer: %v", err)
	}
	_, err = second.AddExpense(ctx, "2024-01-20", "Miscellaneous", "Tea", "40")
	if !storage.IsStorageError(err) || !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	reloaded := openTest(t, repo)
	snap := reloaded.Snapshot()
	if len(snap.Contributions) != 1 || snap.Contributions[0].PersonName != "Ravi" {
		t.Fatalf("first save lost: %+v", snap.Contributions)
	}
	if len(snap.Expenses) != 0 {
		t.Fatalf("conflicting save leaked: %+v", snap.Expenses)
	}

	if _, err := reloaded.AddExpense(ctx, "2024-01-20", "Miscellaneous", "Tea", "40"); err != nil {
		t.Fatalf("writer at current revision: %v", err)
	}
	if _, err := first.AddLoan(ctx, "2024-01-21", "Anu", "100", "1"); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale first writer should conflict, got %v", err)
	}
}
