package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gsetrade/gsebook/internal/auth"
	"github.com/gsetrade/gsebook/internal/model"
	"github.com/gsetrade/gsebook/internal/store"
)

const invalidLogin = "Invalid username or password."

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if sessionClaims(r, s.Secret, s.DB) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := s.page(w, r, "Login")
	data.Next = r.URL.Query().Get("next")
	s.Templates.Render(w, http.StatusOK, "login.html", &data)
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := r.FormValue("next")

	fail := func(msg string) {
		addFlash(w, r, FlashError, msg)
		http.Redirect(w, r, loginURL(next), http.StatusSeeOther)
	}

	if username == "" || password == "" {
		fail("Enter your username and password.")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		fail("Login failed. Please try again.")
		return
	}
	if user == nil {
		fail(invalidLogin)
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		slog.Error("failed to check password", "user", user.Username, "error", err)
	}
	if !ok {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		fail(invalidLogin)
		return
	}

	token, err := auth.GenerateToken(s.Secret, user.ID, user.Username)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		fail("Login failed. Please try again.")
		return
	}

	s.setAuthCookie(w, token)
	slog.Info("user logged in", "user", user.Username)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if sessionClaims(r, s.Secret, s.DB) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := s.page(w, r, "Register")
	s.Templates.Render(w, http.StatusOK, "register.html", &data)
}

// RegisterSubmit handles POST /register.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	fail := func(msg string) {
		addFlash(w, r, FlashError, msg)
		http.Redirect(w, r, "/register", http.StatusSeeOther)
	}

	if err := model.ValidateUsername(username); err != nil {
		fail(err.Error())
		return
	}
	if err := model.ValidatePassword(password); err != nil {
		fail(err.Error())
		return
	}
	if confirm, ok := r.Form["confirm_password"]; ok && confirm[0] != password {
		fail("Passwords do not match.")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		fail("Registration failed. Please try again.")
		return
	}

	if _, err := store.CreateUser(r.Context(), s.DB, username, hash); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			fail("Username already taken.")
			return
		}
		slog.Error("failed to create user", "error", err)
		fail("Registration failed. Please try again.")
		return
	}

	slog.Info("user registered", "user", username)
	addFlash(w, r, FlashSuccess, "Registration successful! Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout handles GET and POST /logout. The session token is revoked so a
// copied cookie stops working as well.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := sessionClaims(r, s.Secret, s.DB); claims != nil {
		expires := time.Now().Add(auth.TokenExpiry)
		if claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time
		}
		if err := store.RevokeToken(r.Context(), s.DB, claims.ID, expires); err != nil {
			slog.Error("failed to revoke token", "user", claims.Username, "error", err)
		} else {
			slog.Info("user logged out", "user", claims.Username)
		}
	}

	clearAuthCookie(w)
	addFlash(w, r, FlashInfo, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

const resetNotice = "If an account exists with that username, you will receive password reset instructions."

// ForgotPasswordPage handles GET /forgot_password.
func (s *Server) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	if sessionClaims(r, s.Secret, s.DB) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := s.page(w, r, "Forgot password")
	s.Templates.Render(w, http.StatusOK, "forgot_password.html", &data)
}

// ForgotPasswordSubmit handles POST /forgot_password. The response is the
// same whether or not the user exists.
func (s *Server) ForgotPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	if username != "" {
		if _, err := store.GetUserByUsername(r.Context(), s.DB, username); err != nil {
			slog.Error("failed to look up user", "error", err)
		}
	}
	addFlash(w, r, FlashInfo, resetNotice)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ResetPassword handles GET /reset_password/{token}. Reset links are not
// issued, so every token is rejected.
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if sessionClaims(r, s.Secret, s.DB) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	addFlash(w, r, FlashWarning, "Password reset is not available. Ask another user to help you sign in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
