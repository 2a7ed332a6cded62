package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spend/internal/core"
)

var (
	// ErrNotFound means no expense row has the requested id.
	ErrNotFound = errors.New("expense not found")
	// ErrForbidden means the row exists but belongs to another user.
	// Existence is always checked before ownership, so callers can rely on
	// ErrForbidden implying the row is real.
	ErrForbidden = errors.New("expense owned by another user")
)

// EventPublisher receives best-effort expense change notifications.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, action string, expenseID, userID uint) error
}

// ExpenseService carries the ownership predicate shared by every expense
// operation and publishes change events after successful writes.
type ExpenseService struct {
	store  core.ExpenseStore
	events EventPublisher
}

func NewExpenseService(store core.ExpenseStore, events EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:  store,
		events: events,
	}
}

// ExpensePatch holds partial replacement values for an update. Nil fields are
// left unchanged.
type ExpensePatch struct {
	Title       *string
	AmountCents *int64
	Date        *core.Date
	CategoryID  *uint
}

// Create validates and persists a new expense owned by userID.
func (s *ExpenseService) Create(ctx context.Context, e *core.Expense) (*core.Expense, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, "created", e.ID, e.UserID)
	return e, nil
}

// GetOwned fetches an expense, checking existence before ownership.
func (s *ExpenseService) GetOwned(ctx context.Context, id, userID uint) (*core.Expense, error) {
	e, err := s.store.ExpenseByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if e.UserID != userID {
		return nil, ErrForbidden
	}
	return e, nil
}

// UpdateOwned applies a partial update to an owned expense and returns the
// updated row with its category joined.
func (s *ExpenseService) UpdateOwned(ctx context.Context, id, userID uint, patch ExpensePatch) (*core.Expense, error) {
	e, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.AmountCents != nil {
		e.AmountCents = *patch.AmountCents
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.CategoryID != nil {
		e.CategoryID = *patch.CategoryID
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	// Reload so the joined category reflects a changed CategoryID.
	updated, err := s.store.ExpenseByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload expense: %w", err)
	}

	s.publish(ctx, "updated", id, userID)
	return updated, nil
}

// Delete removes an owned expense. A foreign or missing id matches zero rows
// and is a silent no-op, preserving the conditional-delete semantics of the
// web surface.
func (s *ExpenseService) Delete(ctx context.Context, id, userID uint) error {
	affected, err := s.store.DeleteExpenseOwned(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if affected == 0 {
		return nil
	}

	s.publish(ctx, "deleted", id, userID)
	return nil
}

// ListWithTotal returns the user's expenses (date descending, category
// joined) together with the computed sum of amounts.
func (s *ExpenseService) ListWithTotal(ctx context.Context, userID uint) ([]core.Expense, core.Money, error) {
	expenses, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("list expenses: %w", err)
	}

	var total core.Money
	for _, e := range expenses {
		total.Cents += e.AmountCents
	}
	return expenses, total, nil
}

// publish sends a change event without ever failing the request.
func (s *ExpenseService) publish(ctx context.Context, action string, expenseID, userID uint) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, action, expenseID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"error", err,
			"action", action,
			"expense_id", expenseID,
			"user_id", userID)
	}
}
