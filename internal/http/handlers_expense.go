package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"spend/internal/core"
	"spend/internal/log"
	"spend/internal/services"
)

type expenseListData struct {
	Username   string
	Expenses   []core.Expense
	TotalCents int64
	Count      int
}

type expenseFormData struct {
	Username   string
	Title      string
	Amount     string
	Date       string
	CategoryID uint
	Categories []core.Category
	Error      string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	expenses, total, err := s.expenses.ListWithTotal(r.Context(), user.ID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list expenses",
			log.FieldError, err,
			log.FieldUserID, user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Dashboard shows the most recent entries only.
	recent := expenses
	if len(recent) > 5 {
		recent = recent[:5]
	}

	s.render(w, r, "index", expenseListData{
		Username:   user.Username,
		Expenses:   recent,
		TotalCents: total.Cents,
		Count:      len(expenses),
	})
}

func (s *Server) handleExpensesPage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	expenses, total, err := s.expenses.ListWithTotal(r.Context(), user.ID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list expenses",
			log.FieldError, err,
			log.FieldUserID, user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "expenses", expenseListData{
		Username:   user.Username,
		Expenses:   expenses,
		TotalCents: total.Cents,
		Count:      len(expenses),
	})
}

func (s *Server) handleExpenseFormPage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list categories",
			log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "expense_form", expenseFormData{
		Username:   user.Username,
		Categories: categories,
	})
}

func (s *Server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	logger := log.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	amountRaw := r.FormValue("amount")
	dateRaw := r.FormValue("date")
	categoryRaw := r.FormValue("category_id")

	fail := func(msg string) {
		categories, err := s.store.ListCategories(r.Context())
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		var catID uint
		if id, err := strconv.ParseUint(categoryRaw, 10, 64); err == nil {
			catID = uint(id)
		}
		s.renderStatus(w, r, http.StatusBadRequest, "expense_form", expenseFormData{
			Username:   user.Username,
			Title:      title,
			Amount:     amountRaw,
			Date:       dateRaw,
			CategoryID: catID,
			Categories: categories,
			Error:      msg,
		})
	}

	cents, err := core.ParseDecimalToCents(amountRaw)
	if err != nil {
		fail("Amount must be a positive number like 12.34")
		return
	}

	date, err := core.ParseDate(dateRaw)
	if err != nil {
		fail("Date must be in YYYY-MM-DD format")
		return
	}

	categoryID, err := strconv.ParseUint(categoryRaw, 10, 64)
	if err != nil || categoryID == 0 {
		fail("Please select a category")
		return
	}

	expense := &core.Expense{
		Title:       title,
		AmountCents: cents,
		Date:        date,
		CategoryID:  uint(categoryID),
		UserID:      user.ID,
	}

	if _, err := s.expenses.Create(r.Context(), expense); err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyTitle):
			fail("Title is required")
		case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrNoCategory):
			fail("Please check the form values")
		default:
			logger.ErrorContext(r.Context(), "Failed to create expense",
				log.FieldError, err,
				log.FieldUserID, user.ID,
				log.FieldOperation, log.OpCreate)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	logger.InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, expense.ID,
		log.FieldUserID, user.ID,
		log.FieldAmount, expense.AmountCents)

	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

// handleExpenseDelete removes an owned expense. Deleting a missing or foreign
// id is indistinguishable from success; either way the user lands back on the
// list.
func (s *Server) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		http.Redirect(w, r, "/expenses", http.StatusSeeOther)
		return
	}

	if err := s.expenses.Delete(r.Context(), id, user.ID); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to delete expense",
			log.FieldError, err,
			log.FieldExpenseID, id,
			log.FieldUserID, user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

// expenseResponse is the JSON shape of an expense.
type expenseResponse struct {
	ID       uint             `json:"id"`
	Title    string           `json:"title"`
	Amount   float64          `json:"amount"`
	Date     core.Date        `json:"date"`
	Category categoryResponse `json:"category"`
}

func toExpenseResponse(e *core.Expense) expenseResponse {
	return expenseResponse{
		ID:       e.ID,
		Title:    e.Title,
		Amount:   e.Amount().Euros(),
		Date:     e.Date,
		Category: categoryResponse{ID: e.Category.ID, Name: e.Category.Name},
	}
}

func (s *Server) handleAPIExpenseGet(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	expense, err := s.expenses.GetOwned(r.Context(), id, user.ID)
	if err != nil {
		s.writeExpenseError(w, r, err, id, user.ID)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

// expenseUpdateRequest carries a partial update; absent fields keep their
// stored values.
type expenseUpdateRequest struct {
	Title      *string    `json:"title"`
	Amount     *float64   `json:"amount"`
	Date       *core.Date `json:"date"`
	CategoryID *uint      `json:"category_id"`
}

func (s *Server) handleAPIExpenseUpdate(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseUpdateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := services.ExpensePatch{
		Title:      req.Title,
		Date:       req.Date,
		CategoryID: req.CategoryID,
	}
	if req.Amount != nil {
		cents, err := core.FloatToCents(*req.Amount)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "amount must be a positive number")
			return
		}
		patch.AmountCents = &cents
	}

	expense, err := s.expenses.UpdateOwned(r.Context(), id, user.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyTitle),
			errors.Is(err, core.ErrInvalidAmount),
			errors.Is(err, core.ErrInvalidDate),
			errors.Is(err, core.ErrNoCategory):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeExpenseError(w, r, err, id, user.ID)
		}
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense updated",
		log.FieldExpenseID, id,
		log.FieldUserID, user.ID,
		log.FieldOperation, log.OpUpdate)

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

// writeExpenseError maps service errors onto API statuses. Not-found wins over
// forbidden, so probing ids cannot distinguish "missing" from "not yours" by
// the order of checks alone.
func (s *Server) writeExpenseError(w http.ResponseWriter, r *http.Request, err error, id, userID uint) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "expense not found")
	case errors.Is(err, services.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "expense belongs to another user")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Expense operation failed",
			log.FieldError, err,
			log.FieldExpenseID, id,
			log.FieldUserID, userID)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, core.ErrNotFound
	}
	return uint(id), nil
}
