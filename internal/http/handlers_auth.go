package http

import (
	"errors"
	"net/http"
	"strings"

	"spend/internal/core"
	"spend/internal/log"
)

// authPageData feeds the signup and login templates.
type authPageData struct {
	Username string
	Error    string
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup", authPageData{})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest, "signup", authPageData{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.renderStatus(w, r, http.StatusBadRequest, "signup", authPageData{
			Username: username,
			Error:    "Username and password are required",
		})
		return
	}
	if len(username) > 50 {
		s.renderStatus(w, r, http.StatusBadRequest, "signup", authPageData{
			Error: "Username too long (max 50 characters)",
		})
		return
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to hash password",
			log.FieldError, err,
			log.FieldOperation, log.OpSignup)
		s.renderStatus(w, r, http.StatusInternalServerError, "signup", authPageData{
			Username: username,
			Error:    "Something went wrong, please try again",
		})
		return
	}

	user := &core.User{Username: username, PasswordHash: hash}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			s.renderStatus(w, r, http.StatusConflict, "signup", authPageData{
				Username: username,
				Error:    "Username already taken",
			})
			return
		}
		logger.ErrorContext(r.Context(), "Failed to create user",
			log.FieldError, err,
			log.FieldOperation, log.OpSignup)
		s.renderStatus(w, r, http.StatusInternalServerError, "signup", authPageData{
			Username: username,
			Error:    "Something went wrong, please try again",
		})
		return
	}

	logger.InfoContext(r.Context(), "User signed up",
		log.FieldUserID, user.ID,
		log.FieldUsername, username)

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", authPageData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest, "login", authPageData{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	// One message for unknown user and wrong password, so usernames cannot
	// be enumerated through the login form.
	user, err := s.store.UserByUsername(r.Context(), username)
	if err != nil || !s.auth.VerifyPassword(password, user.PasswordHash) {
		logger.WarnContext(r.Context(), "Login failed",
			log.FieldUsername, username,
			log.FieldOperation, log.OpLogin)
		s.renderStatus(w, r, http.StatusUnauthorized, "login", authPageData{
			Username: username,
			Error:    "Invalid credentials",
		})
		return
	}

	token, err := s.auth.IssueToken(user.ID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue token",
			log.FieldError, err,
			log.FieldUserID, user.ID)
		s.renderStatus(w, r, http.StatusInternalServerError, "login", authPageData{
			Username: username,
			Error:    "Something went wrong, please try again",
		})
		return
	}

	s.setSessionCookie(w, token)

	logger.InfoContext(r.Context(), "User logged in",
		log.FieldUserID, user.ID,
		log.FieldUsername, username)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
