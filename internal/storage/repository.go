package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"spend/internal/config"
	"spend/internal/core"
)

// Repository is the GORM-backed store of record. It implements the core
// store ports over either postgres or sqlite, selected by configuration.
type Repository struct {
	db *gorm.DB
}

func Open(cfg *config.Config) (*Repository, error) {
	var (
		dialector gorm.Dialector
		dialect   string
	)

	switch cfg.DBBackend {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		// Foreign keys are off by default in sqlite; the store enforces
		// referential integrity, so turn them on per connection.
		dialector = sqlite.Open(cfg.SQLiteDBPath + "?_pragma=foreign_keys(1)")
		dialect = "sqlite"
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN())
		dialect = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(sqlDB, dialect); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("Database opened and migrated", "backend", dialect)

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser implements core.UserStore
func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByUsername implements core.UserStore
func (r *Repository) UserByUsername(ctx context.Context, username string) (*core.User, error) {
	var u core.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("user by username: %w", err)
	}
	return &u, nil
}

// UserByID implements core.UserStore
func (r *Repository) UserByID(ctx context.Context, id uint) (*core.User, error) {
	var u core.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return &u, nil
}

// ListCategories implements core.CategoryStore
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	if err := r.db.WithContext(ctx).Order("name asc").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// CreateExpense implements core.ExpenseStore
func (r *Repository) CreateExpense(ctx context.Context, e *core.Expense) error {
	if err := r.db.WithContext(ctx).Omit("Category").Create(e).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// ExpenseByID implements core.ExpenseStore
func (r *Repository) ExpenseByID(ctx context.Context, id uint) (*core.Expense, error) {
	var e core.Expense
	err := r.db.WithContext(ctx).Preload("Category").First(&e, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("expense by id: %w", err)
	}
	return &e, nil
}

// UpdateExpense implements core.ExpenseStore
func (r *Repository) UpdateExpense(ctx context.Context, e *core.Expense) error {
	err := r.db.WithContext(ctx).Omit("Category").Save(e).Error
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// DeleteExpenseOwned implements core.ExpenseStore. The owner condition is
// part of the statement, so a foreign id matches zero rows.
func (r *Repository) DeleteExpenseOwned(ctx context.Context, id, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&core.Expense{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expense: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListExpensesByUser implements core.ExpenseStore
func (r *Repository) ListExpensesByUser(ctx context.Context, userID uint) ([]core.Expense, error) {
	var expenses []core.Expense
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, fmt.Errorf("list expenses for user %d: %w", userID, err)
	}
	return expenses, nil
}
