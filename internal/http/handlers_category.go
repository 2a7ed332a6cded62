package http

import (
	"net/http"

	"spend/internal/core"
	"spend/internal/log"
)

type categoriesPageData struct {
	Username   string
	Categories []core.Category
}

func (s *Server) handleCategoriesPage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list categories",
			log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "categories", categoriesPageData{
		Username:   user.Username,
		Categories: categories,
	})
}

type categoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list categories",
			log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}
