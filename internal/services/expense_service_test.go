package services

import (
	"context"
	"errors"
	"testing"

	"spend/internal/core"
)

// fakeExpenseStore is an in-memory core.ExpenseStore.
type fakeExpenseStore struct {
	expenses map[uint]*core.Expense
	nextID   uint

	failWith error
}

func newFakeExpenseStore() *fakeExpenseStore {
	return &fakeExpenseStore{
		expenses: make(map[uint]*core.Expense),
		nextID:   1,
	}
}

func (f *fakeExpenseStore) CreateExpense(_ context.Context, e *core.Expense) error {
	if f.failWith != nil {
		return f.failWith
	}
	e.ID = f.nextID
	f.nextID++
	cp := *e
	f.expenses[e.ID] = &cp
	return nil
}

func (f *fakeExpenseStore) ExpenseByID(_ context.Context, id uint) (*core.Expense, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	e, ok := f.expenses[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExpenseStore) UpdateExpense(_ context.Context, e *core.Expense) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.expenses[e.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *e
	f.expenses[e.ID] = &cp
	return nil
}

func (f *fakeExpenseStore) DeleteExpenseOwned(_ context.Context, id, userID uint) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return 0, nil
	}
	delete(f.expenses, id)
	return 1, nil
}

func (f *fakeExpenseStore) ListExpensesByUser(_ context.Context, userID uint) ([]core.Expense, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []core.Expense
	for _, e := range f.expenses {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) PublishExpenseEvent(_ context.Context, action string, expenseID, userID uint) error {
	f.events = append(f.events, action)
	return f.err
}

func validExpense(userID uint) *core.Expense {
	return &core.Expense{
		Title:       "Groceries",
		AmountCents: 4550,
		Date:        core.NewDate(2025, 1, 15),
		CategoryID:  2,
		UserID:      userID,
	}
}

func TestCreate(t *testing.T) {
	store := newFakeExpenseStore()
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	created, err := svc.Create(context.Background(), validExpense(1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Error("created expense has no id")
	}
	if len(pub.events) != 1 || pub.events[0] != "created" {
		t.Errorf("published events = %v, want [created]", pub.events)
	}
}

func TestCreateValidation(t *testing.T) {
	store := newFakeExpenseStore()
	svc := NewExpenseService(store, nil)

	e := validExpense(1)
	e.AmountCents = 0

	if _, err := svc.Create(context.Background(), e); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("Create error = %v, want ErrInvalidAmount", err)
	}
	if len(store.expenses) != 0 {
		t.Error("invalid expense was persisted")
	}
}

func TestCreatePublishFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeExpenseStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, pub)

	if _, err := svc.Create(context.Background(), validExpense(1)); err != nil {
		t.Fatalf("Create failed on publish error: %v", err)
	}
}

func TestGetOwned(t *testing.T) {
	store := newFakeExpenseStore()
	svc := NewExpenseService(store, nil)

	mine, err := svc.Create(context.Background(), validExpense(1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("owner reads own expense", func(t *testing.T) {
		got, err := svc.GetOwned(context.Background(), mine.ID, 1)
		if err != nil {
			t.Fatalf("GetOwned: %v", err)
		}
		if got.ID != mine.ID {
			t.Errorf("got expense %d, want %d", got.ID, mine.ID)
		}
	})

	t.Run("missing id is not found", func(t *testing.T) {
		if _, err := svc.GetOwned(context.Background(), 999, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetOwned error = %v, want ErrNotFound", err)
		}
	})

	t.Run("foreign id is forbidden", func(t *testing.T) {
		if _, err := svc.GetOwned(context.Background(), mine.ID, 2); !errors.Is(err, ErrForbidden) {
			t.Errorf("GetOwned error = %v, want ErrForbidden", err)
		}
	})

	t.Run("missing id wins over wrong user", func(t *testing.T) {
		// A different user probing a nonexistent id must still see not-found.
		if _, err := svc.GetOwned(context.Background(), 999, 2); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetOwned error = %v, want ErrNotFound", err)
		}
	})
}

func TestUpdateOwned(t *testing.T) {
	store := newFakeExpenseStore()
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	mine, err := svc.Create(context.Background(), validExpense(1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newTitle := "Weekly shop"
	newCents := int64(5000)
	updated, err := svc.UpdateOwned(context.Background(), mine.ID, 1, ExpensePatch{
		Title:       &newTitle,
		AmountCents: &newCents,
	})
	if err != nil {
		t.Fatalf("UpdateOwned: %v", err)
	}
	if updated.Title != newTitle {
		t.Errorf("Title = %q, want %q", updated.Title, newTitle)
	}
	if updated.AmountCents != newCents {
		t.Errorf("AmountCents = %d, want %d", updated.AmountCents, newCents)
	}
	// Unpatched fields keep their values.
	if updated.CategoryID != mine.CategoryID {
		t.Errorf("CategoryID = %d, want %d", updated.CategoryID, mine.CategoryID)
	}

	if len(pub.events) != 2 || pub.events[1] != "updated" {
		t.Errorf("published events = %v, want [created updated]", pub.events)
	}
}

func TestUpdateOwnedErrors(t *testing.T) {
	store := newFakeExpenseStore()
	svc := NewExpenseService(store, nil)

	mine, err := svc.Create(context.Background(), validExpense(1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("not found", func(t *testing.T) {
		if _, err := svc.UpdateOwned(context.Background(), 999, 1, ExpensePatch{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateOwned error = %v, want ErrNotFound", err)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		if _, err := svc.UpdateOwned(context.Background(), mine.ID, 2, ExpensePatch{}); !errors.Is(err, ErrForbidden) {
			t.Errorf("UpdateOwned error = %v, want ErrForbidden", err)
		}
	})

	t.Run("invalid patch", func(t *testing.T) {
		bad := int64(-5)
		if _, err := svc.UpdateOwned(context.Background(), mine.ID, 1, ExpensePatch{AmountCents: &bad}); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("UpdateOwned error = %v, want ErrInvalidAmount", err)
		}
		// The stored row is untouched.
		got, err := svc.GetOwned(context.Background(), mine.ID, 1)
		if err != nil {
			t.Fatalf("GetOwned: %v", err)
		}
		if got.AmountCents != mine.AmountCents {
			t.Errorf("AmountCents = %d, want %d after failed update", got.AmountCents, mine.AmountCents)
		}
	})
}

func TestDelete(t *testing.T) {
	store := newFakeExpenseStore()
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	mine, err := svc.Create(context.Background(), validExpense(1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	theirs, err := svc.Create(context.Background(), validExpense(2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	pub.events = nil

	t.Run("owner deletes own expense", func(t *testing.T) {
		if err := svc.Delete(context.Background(), mine.ID, 1); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := svc.GetOwned(context.Background(), mine.ID, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("expense still readable after delete: %v", err)
		}
		if len(pub.events) != 1 || pub.events[0] != "deleted" {
			t.Errorf("published events = %v, want [deleted]", pub.events)
		}
	})

	t.Run("foreign delete is a silent no-op", func(t *testing.T) {
		pub.events = nil
		if err := svc.Delete(context.Background(), theirs.ID, 1); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		// The other user's row survives and no event fires.
		if _, err := svc.GetOwned(context.Background(), theirs.ID, 2); err != nil {
			t.Errorf("foreign expense removed: %v", err)
		}
		if len(pub.events) != 0 {
			t.Errorf("published events = %v, want none", pub.events)
		}
	})

	t.Run("missing id is a silent no-op", func(t *testing.T) {
		if err := svc.Delete(context.Background(), 999, 1); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})
}

func TestListWithTotal(t *testing.T) {
	store := newFakeExpenseStore()
	svc := NewExpenseService(store, nil)

	for _, cents := range []int64{100, 250, 399} {
		e := validExpense(1)
		e.AmountCents = cents
		if _, err := svc.Create(context.Background(), e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other := validExpense(2)
	other.AmountCents = 10000
	if _, err := svc.Create(context.Background(), other); err != nil {
		t.Fatalf("Create: %v", err)
	}

	expenses, total, err := svc.ListWithTotal(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListWithTotal: %v", err)
	}
	if len(expenses) != 3 {
		t.Errorf("len(expenses) = %d, want 3", len(expenses))
	}
	if total.Cents != 749 {
		t.Errorf("total = %d cents, want 749", total.Cents)
	}
}
