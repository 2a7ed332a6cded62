package core

import "context"

// UserStore persists and resolves user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id uint) (*User, error)
}

// CategoryStore reads the global category taxonomy.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
}

// ExpenseStore persists expense rows. Reads preload the joined category;
// ListExpensesByUser returns rows ordered by date descending.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *Expense) error
	ExpenseByID(ctx context.Context, id uint) (*Expense, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	// DeleteExpenseOwned removes the row matching both id and owner in a
	// single conditional statement and reports how many rows matched.
	DeleteExpenseOwned(ctx context.Context, id, userID uint) (int64, error)
	ListExpensesByUser(ctx context.Context, userID uint) ([]Expense, error)
}
