package web

import (
	"log/slog"
	"net/http"

	"github.com/gsetrade/gsebook/internal/auth"
	"github.com/gsetrade/gsebook/internal/model"
	"github.com/gsetrade/gsebook/internal/store"
)

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "Settings")
	s.Templates.Render(w, http.StatusOK, "settings.html", &data)
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	fail := func(msg string) {
		addFlash(w, r, FlashError, msg)
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
	}

	if currentPassword == "" || newPassword == "" {
		fail("Enter your current and new password.")
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		fail(err.Error())
		return
	}
	if newPassword != r.FormValue("confirm_password") {
		fail("New passwords do not match.")
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil || user == nil {
		slog.Error("failed to load user", "user", claims.Username, "error", err)
		fail("Could not load your account.")
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, currentPassword)
	if err != nil {
		slog.Error("failed to check password", "user", claims.Username, "error", err)
	}
	if !ok {
		fail("Current password is incorrect.")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		fail("Could not save the new password.")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, hash); err != nil {
		slog.Error("failed to update password", "user", claims.Username, "error", err)
		fail("Could not save the new password.")
		return
	}

	slog.Info("user changed own password", "user", claims.Username)
	addFlash(w, r, FlashSuccess, "Password changed successfully.")
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}
