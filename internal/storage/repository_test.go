package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"scadenze/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testCommitment(owner string, due core.Date) core.Commitment {
	return core.Commitment{
		OwnerID:     owner,
		Description: "Rent",
		Category:    "Housing",
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 120000},
		NextDueDate: due,
		Pattern:     core.Monthly,
		Interval:    1,
		IsActive:    true,
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	c := testCommitment("alice", core.NewDate(2026, 9, 1))
	c.EndDate = core.NewDate(2027, 9, 1)
	id, err := repo.Create(ctx, c)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, id, "alice")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Description != "Rent" || got.Amount.Cents != 120000 {
		t.Errorf("GetByID() = %+v, fields did not round-trip", got)
	}
	if !got.NextDueDate.SameDay(core.NewDate(2026, 9, 1)) {
		t.Errorf("next due = %v, want 2026-09-01", got.NextDueDate)
	}
	if !got.EndDate.SameDay(core.NewDate(2027, 9, 1)) {
		t.Errorf("end date = %v, want 2027-09-01", got.EndDate)
	}
	if !got.LastExecutedDate.IsEmpty() {
		t.Errorf("last executed = %v, want unset", got.LastExecutedDate)
	}
	if !got.IsActive {
		t.Error("commitment not active after create")
	}

	if _, err := repo.GetByID(ctx, id, "mallory"); !errors.Is(err, core.ErrCommitmentNotFound) {
		t.Errorf("GetByID() wrong owner error = %v, want ErrCommitmentNotFound", err)
	}
}

func TestSQLiteRepository_GetAllDue(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	// Due before, on, and after the sweep date, plus an inactive one.
	idEarly, _ := repo.Create(ctx, testCommitment("alice", core.NewDate(2026, 8, 10)))
	idOnDay, _ := repo.Create(ctx, testCommitment("bob", core.NewDate(2026, 8, 15)))
	if _, err := repo.Create(ctx, testCommitment("carol", core.NewDate(2026, 8, 16))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	idInactive, _ := repo.Create(ctx, testCommitment("dave", core.NewDate(2026, 8, 1)))
	if err := repo.Deactivate(ctx, idInactive, "dave"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	due, err := repo.GetAllDue(ctx, core.NewDate(2026, 8, 15))
	if err != nil {
		t.Fatalf("GetAllDue() error = %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("GetAllDue() = %d commitments, want 2", len(due))
	}
	// Deterministic ordering: due date ascending, then id.
	if due[0].ID != idEarly || due[1].ID != idOnDay {
		t.Errorf("GetAllDue() order = [%d, %d], want [%d, %d]", due[0].ID, due[1].ID, idEarly, idOnDay)
	}
}

func TestSQLiteRepository_GetAllDue_OrderTiesBrokenByID(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	day := core.NewDate(2026, 8, 15)
	id1, _ := repo.Create(ctx, testCommitment("alice", day))
	id2, _ := repo.Create(ctx, testCommitment("bob", day))

	due, err := repo.GetAllDue(ctx, day)
	if err != nil {
		t.Fatalf("GetAllDue() error = %v", err)
	}
	if len(due) != 2 || due[0].ID != id1 || due[1].ID != id2 {
		t.Errorf("GetAllDue() tie order = %+v, want ids [%d, %d]", due, id1, id2)
	}
}

func TestSQLiteRepository_AdvanceAndDeactivate(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, _ := repo.Create(ctx, testCommitment("alice", core.NewDate(2026, 9, 1)))

	executed := core.NewDate(2026, 9, 1)
	next := core.NewDate(2026, 10, 1)
	if err := repo.Advance(ctx, id, "alice", executed, next); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, id, "alice")
	if !got.LastExecutedDate.SameDay(executed) {
		t.Errorf("last executed = %v, want %v", got.LastExecutedDate, executed)
	}
	if !got.NextDueDate.SameDay(next) {
		t.Errorf("next due = %v, want %v", got.NextDueDate, next)
	}

	if err := repo.Deactivate(ctx, id, "alice"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	got, _ = repo.GetByID(ctx, id, "alice")
	if got.IsActive {
		t.Error("commitment still active after Deactivate")
	}
	if !got.NextDueDate.IsEmpty() {
		t.Errorf("next due = %v, want cleared", got.NextDueDate)
	}

	// A terminal commitment can no longer be advanced.
	if err := repo.Advance(ctx, id, "alice", executed, next); !errors.Is(err, core.ErrCommitmentNotFound) {
		t.Errorf("Advance() on terminal error = %v, want ErrCommitmentNotFound", err)
	}
}

func TestSQLiteRepository_UpdateScopedToActiveOwner(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, _ := repo.Create(ctx, testCommitment("alice", core.NewDate(2026, 9, 1)))

	c := testCommitment("alice", core.NewDate(2026, 9, 5))
	c.ID = id
	c.Description = "Rent (new lease)"
	if err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, id, "alice")
	if got.Description != "Rent (new lease)" {
		t.Errorf("description = %q, want updated", got.Description)
	}

	c.OwnerID = "mallory"
	if err := repo.Update(ctx, c); !errors.Is(err, core.ErrCommitmentNotFound) {
		t.Errorf("Update() wrong owner error = %v, want ErrCommitmentNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, _ := repo.Create(ctx, testCommitment("alice", core.NewDate(2026, 9, 1)))
	if err := repo.Delete(ctx, id, "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, id, "alice"); !errors.Is(err, core.ErrCommitmentNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrCommitmentNotFound", err)
	}
	if err := repo.Delete(ctx, id, "alice"); !errors.Is(err, core.ErrCommitmentNotFound) {
		t.Errorf("second Delete() error = %v, want ErrCommitmentNotFound", err)
	}
}

func TestSQLiteRepository_GetByDateRange(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	inRange, _ := repo.Create(ctx, testCommitment("alice", core.NewDate(2026, 9, 10)))
	if _, err := repo.Create(ctx, testCommitment("alice", core.NewDate(2026, 10, 10))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := repo.Create(ctx, testCommitment("bob", core.NewDate(2026, 9, 10))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByDateRange(ctx, "alice", core.NewDate(2026, 9, 1), core.NewDate(2026, 9, 30))
	if err != nil {
		t.Fatalf("GetByDateRange() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != inRange {
		t.Errorf("GetByDateRange() = %+v, want only commitment %d", got, inRange)
	}
}

func TestSQLiteRepository_CreateFromCommitment_Idempotent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, _ := repo.Create(ctx, testCommitment("alice", core.NewDate(2026, 9, 1)))
	entry := core.LedgerEntry{
		OwnerID:      "alice",
		Description:  "Rent",
		Category:     "Housing",
		Kind:         core.Expense,
		Amount:       core.Money{Cents: 120000},
		Date:         core.NewDate(2026, 9, 1),
		CommitmentID: id,
	}

	firstID, created, err := repo.CreateFromCommitment(ctx, entry)
	if err != nil {
		t.Fatalf("first CreateFromCommitment() error = %v", err)
	}
	if !created {
		t.Fatal("first insert reported created = false")
	}

	secondID, created, err := repo.CreateFromCommitment(ctx, entry)
	if err != nil {
		t.Fatalf("second CreateFromCommitment() error = %v", err)
	}
	if created {
		t.Error("second insert reported created = true, want duplicate")
	}
	if secondID != firstID {
		t.Errorf("second insert id = %d, want existing %d", secondID, firstID)
	}

	// A different occurrence date is a new entry.
	entry.Date = core.NewDate(2026, 10, 1)
	_, created, err = repo.CreateFromCommitment(ctx, entry)
	if err != nil {
		t.Fatalf("third CreateFromCommitment() error = %v", err)
	}
	if !created {
		t.Error("different date reported created = false")
	}
}

func TestSQLiteRepository_SumByOwnerUpTo(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	entries := []core.LedgerEntry{
		{OwnerID: "alice", Description: "Salary", Category: "Work", Kind: core.Income, Amount: core.Money{Cents: 200000}, Date: core.NewDate(2026, 8, 1)},
		{OwnerID: "alice", Description: "Groceries", Category: "Food", Kind: core.Expense, Amount: core.Money{Cents: 7000}, Date: core.NewDate(2026, 8, 5)},
		{OwnerID: "alice", Description: "Later", Category: "Food", Kind: core.Expense, Amount: core.Money{Cents: 5000}, Date: core.NewDate(2026, 8, 20)},
		{OwnerID: "bob", Description: "Noise", Category: "Misc", Kind: core.Expense, Amount: core.Money{Cents: 99999}, Date: core.NewDate(2026, 8, 2)},
	}
	for _, e := range entries {
		if _, err := repo.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry() error = %v", err)
		}
	}

	// Cutoff inclusive of Aug 5, excluding the Aug 20 expense and bob's.
	sum, err := repo.SumByOwnerUpTo(ctx, "alice", core.NewDate(2026, 8, 5))
	if err != nil {
		t.Fatalf("SumByOwnerUpTo() error = %v", err)
	}
	if want := int64(200000 - 7000); sum != want {
		t.Errorf("SumByOwnerUpTo() = %d, want %d", sum, want)
	}

	// Owner with no entries sums to zero.
	sum, err = repo.SumByOwnerUpTo(ctx, "nobody", core.NewDate(2026, 8, 31))
	if err != nil {
		t.Fatalf("SumByOwnerUpTo() error = %v", err)
	}
	if sum != 0 {
		t.Errorf("SumByOwnerUpTo() empty owner = %d, want 0", sum)
	}
}

func TestSQLiteRepository_ListEntries(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id1, err := repo.CreateEntry(ctx, core.LedgerEntry{
		OwnerID: "alice", Description: "One", Category: "Misc",
		Kind: core.Expense, Amount: core.Money{Cents: 100}, Date: core.NewDate(2026, 8, 1),
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	id2, err := repo.CreateEntry(ctx, core.LedgerEntry{
		OwnerID: "alice", Description: "Two", Category: "Misc",
		Kind: core.Income, Amount: core.Money{Cents: 200}, Date: core.NewDate(2026, 8, 3),
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	got, err := repo.ListEntries(ctx, "alice", core.NewDate(2026, 8, 1), core.NewDate(2026, 8, 31))
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListEntries() = %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].ID != id2 || got[1].ID != id1 {
		t.Errorf("ListEntries() order = [%d, %d], want [%d, %d]", got[0].ID, got[1].ID, id2, id1)
	}
	// Manual entries carry no commitment id.
	if got[0].CommitmentID != 0 {
		t.Errorf("manual entry commitment id = %d, want 0", got[0].CommitmentID)
	}
}

func TestSQLiteRepository_EnsureInitialized(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created, err := repo.EnsureInitialized(ctx)
	if err != nil {
		t.Fatalf("EnsureInitialized() error = %v", err)
	}
	if !created {
		t.Error("first EnsureInitialized() created = false, want true")
	}

	created, err = repo.EnsureInitialized(ctx)
	if err != nil {
		t.Fatalf("second EnsureInitialized() error = %v", err)
	}
	if created {
		t.Error("second EnsureInitialized() created = true, want false")
	}
}
