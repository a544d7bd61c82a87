package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"scadenze/internal/core"
)

// memStore is an in-memory CommitmentStore for service tests.
type memStore struct {
	nextID int64
	items  map[int64]core.Commitment
}

func newMemStore() *memStore {
	return &memStore{items: make(map[int64]core.Commitment)}
}

func (m *memStore) Create(ctx context.Context, c core.Commitment) (int64, error) {
	m.nextID++
	c.ID = m.nextID
	m.items[c.ID] = c
	return c.ID, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64, ownerID string) (core.Commitment, error) {
	c, ok := m.items[id]
	if !ok || c.OwnerID != ownerID {
		return core.Commitment{}, core.ErrCommitmentNotFound
	}
	return c, nil
}

func (m *memStore) GetAllActive(ctx context.Context, ownerID string) ([]core.Commitment, error) {
	var out []core.Commitment
	for _, c := range m.items {
		if c.OwnerID == ownerID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, c core.Commitment) error {
	existing, ok := m.items[c.ID]
	if !ok || existing.OwnerID != c.OwnerID || !existing.IsActive {
		return core.ErrCommitmentNotFound
	}
	m.items[c.ID] = c
	return nil
}

func (m *memStore) Delete(ctx context.Context, id int64, ownerID string) error {
	c, ok := m.items[id]
	if !ok || c.OwnerID != ownerID {
		return core.ErrCommitmentNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) GetAllDue(ctx context.Context, asOf core.Date) ([]core.Commitment, error) {
	return nil, nil
}

func (m *memStore) Advance(ctx context.Context, id int64, ownerID string, executed, next core.Date) error {
	c, ok := m.items[id]
	if !ok {
		return core.ErrCommitmentNotFound
	}
	c.LastExecutedDate = executed
	c.NextDueDate = next
	m.items[id] = c
	return nil
}

func (m *memStore) Deactivate(ctx context.Context, id int64, ownerID string) error {
	c, ok := m.items[id]
	if !ok || c.OwnerID != ownerID {
		return core.ErrCommitmentNotFound
	}
	c.IsActive = false
	c.NextDueDate = core.Date{}
	m.items[id] = c
	return nil
}

func (m *memStore) GetByDateRange(ctx context.Context, ownerID string, start, end core.Date) ([]core.Commitment, error) {
	return nil, nil
}

func fixedClock(year, month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.Month(month), day, 12, 30, 0, 0, time.UTC)
	}
}

func validCommitment(owner string, due core.Date) core.Commitment {
	return core.Commitment{
		OwnerID:     owner,
		Description: "Netflix",
		Category:    "Subscriptions",
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 1299},
		NextDueDate: due,
		Pattern:     core.Monthly,
		Interval:    1,
	}
}

func TestCommitmentService_Create(t *testing.T) {
	today := core.NewDate(2026, 8, 15)

	tests := []struct {
		name    string
		mutate  func(*core.Commitment)
		wantErr error
	}{
		{
			name:   "valid commitment due tomorrow",
			mutate: func(c *core.Commitment) { c.NextDueDate = today.AddDays(1) },
		},
		{
			name:    "due today is rejected",
			mutate:  func(c *core.Commitment) { c.NextDueDate = today },
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "due in the past is rejected",
			mutate:  func(c *core.Commitment) { c.NextDueDate = today.AddDays(-3) },
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "missing description",
			mutate:  func(c *core.Commitment) { c.Description = "  " },
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "zero amount",
			mutate:  func(c *core.Commitment) { c.Amount = core.Money{} },
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown kind",
			mutate:  func(c *core.Commitment) { c.Kind = "transfer" },
			wantErr: core.ErrInvalidKind,
		},
		{
			name:    "unknown pattern",
			mutate:  func(c *core.Commitment) { c.Pattern = "hourly" },
			wantErr: core.ErrInvalidPattern,
		},
		{
			name:    "negative interval",
			mutate:  func(c *core.Commitment) { c.Interval = -2 },
			wantErr: core.ErrInvalidInterval,
		},
		{
			name: "end date before due date",
			mutate: func(c *core.Commitment) {
				c.NextDueDate = today.AddDays(10)
				c.EndDate = today.AddDays(5)
			},
			wantErr: core.ErrEndBeforeDue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := NewCommitmentService(store, fixedClock(2026, 8, 15))

			c := validCommitment("alice", today.AddDays(1))
			tt.mutate(&c)

			id, err := svc.Create(context.Background(), c)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			stored, err := store.GetByID(context.Background(), id, "alice")
			if err != nil {
				t.Fatalf("stored commitment missing: %v", err)
			}
			if !stored.IsActive {
				t.Error("created commitment is not active")
			}
			if !stored.LastExecutedDate.IsEmpty() {
				t.Error("created commitment has a last executed date")
			}
		})
	}
}

func TestCommitmentService_Create_DefaultsIntervalToOne(t *testing.T) {
	store := newMemStore()
	svc := NewCommitmentService(store, fixedClock(2026, 8, 15))

	c := validCommitment("alice", core.NewDate(2026, 9, 1))
	c.Interval = 0

	id, err := svc.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	stored, _ := store.GetByID(context.Background(), id, "alice")
	if stored.Interval != 1 {
		t.Errorf("interval = %d, want 1", stored.Interval)
	}
}

func TestCommitmentService_Update_RejectsTerminal(t *testing.T) {
	store := newMemStore()
	svc := NewCommitmentService(store, fixedClock(2026, 8, 15))

	id, err := svc.Create(context.Background(), validCommitment("alice", core.NewDate(2026, 9, 1)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Deactivate(context.Background(), id, "alice"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	c := validCommitment("alice", core.NewDate(2026, 10, 1))
	c.ID = id
	err = svc.Update(context.Background(), c)
	if !errors.Is(err, ErrCommitmentTerminal) {
		t.Errorf("Update() error = %v, want %v", err, ErrCommitmentTerminal)
	}
}

func TestCommitmentService_Update_PreservesLastExecuted(t *testing.T) {
	store := newMemStore()
	svc := NewCommitmentService(store, fixedClock(2026, 8, 15))

	id, err := svc.Create(context.Background(), validCommitment("alice", core.NewDate(2026, 9, 1)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	executed := core.NewDate(2026, 9, 1)
	if err := store.Advance(context.Background(), id, "alice", executed, core.NewDate(2026, 10, 1)); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	c := validCommitment("alice", core.NewDate(2026, 11, 1))
	c.ID = id
	c.Description = "Netflix Premium"
	if err := svc.Update(context.Background(), c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, _ := store.GetByID(context.Background(), id, "alice")
	if stored.Description != "Netflix Premium" {
		t.Errorf("description = %q, want updated value", stored.Description)
	}
	if !stored.LastExecutedDate.SameDay(executed) {
		t.Errorf("last executed = %v, want preserved %v", stored.LastExecutedDate, executed)
	}
}

func TestCommitmentService_OwnerScoping(t *testing.T) {
	store := newMemStore()
	svc := NewCommitmentService(store, fixedClock(2026, 8, 15))

	id, err := svc.Create(context.Background(), validCommitment("alice", core.NewDate(2026, 9, 1)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Get(context.Background(), id, "mallory"); !errors.Is(err, core.ErrCommitmentNotFound) {
		t.Errorf("Get() as wrong owner error = %v, want %v", err, core.ErrCommitmentNotFound)
	}
	if err := svc.Delete(context.Background(), id, "mallory"); !errors.Is(err, core.ErrCommitmentNotFound) {
		t.Errorf("Delete() as wrong owner error = %v, want %v", err, core.ErrCommitmentNotFound)
	}
	if _, err := svc.Get(context.Background(), id, "alice"); err != nil {
		t.Errorf("Get() as owner error = %v", err)
	}
}

func TestCommitmentService_ListActive_RequiresOwner(t *testing.T) {
	svc := NewCommitmentService(newMemStore(), nil)
	if _, err := svc.ListActive(context.Background(), ""); !errors.Is(err, core.ErrEmptyOwner) {
		t.Errorf("ListActive() error = %v, want %v", err, core.ErrEmptyOwner)
	}
}
