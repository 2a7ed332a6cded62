package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// User is an account holder. PasswordHash is the only persisted secret.
	User struct {
		ID           uint   `gorm:"primaryKey"`
		Username     string `gorm:"uniqueIndex;not null"`
		PasswordHash string `gorm:"not null"`
	}

	// Category is global and shared across all users.
	Category struct {
		ID   uint   `gorm:"primaryKey"`
		Name string `gorm:"uniqueIndex;not null"`
	}

	Expense struct {
		ID          uint   `gorm:"primaryKey"`
		Title       string `gorm:"not null"`
		AmountCents int64  `gorm:"not null"`
		Date        Date   `gorm:"not null"`
		CategoryID  uint   `gorm:"not null"`
		Category    Category
		UserID      uint `gorm:"not null;index"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyTitle    = errors.New("empty title")
	ErrNoCategory    = errors.New("missing category")

	// ErrNotFound and ErrDuplicate are the storage-level sentinels the
	// handlers branch on; the repository maps driver errors onto them.
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Value implements driver.Valuer so the ORM can persist the wrapped time.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner; drivers hand back time.Time, string or bytes
// depending on dialect.
func (d *Date) Scan(v any) error {
	switch t := v.(type) {
	case nil:
		d.Time = time.Time{}
		return nil
	case time.Time:
		d.Time = t
		return nil
	case []byte:
		return d.Scan(string(t))
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, dateLayout, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				d.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("scan date: unsupported value %q", t)
	default:
		return fmt.Errorf("scan date: unsupported type %T", v)
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := (Money{Cents: e.AmountCents}).Validate(); err != nil {
		return err
	}
	if e.CategoryID == 0 {
		return ErrNoCategory
	}
	return nil
}

// Amount returns the expense amount as Money.
func (e Expense) Amount() Money {
	return Money{Cents: e.AmountCents}
}
