package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/sjlee-edu/mathtutor/internal/handler/views"
	appI18n "github.com/sjlee-edu/mathtutor/internal/i18n"
	"github.com/sjlee-edu/mathtutor/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, token string) {
	cookiePath := "/"
	if h.config.BasePath != "" {
		cookiePath = h.config.BasePath + "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     cookiePath,
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" || r.Method == "HEAD" {
			token, err := generateCSRFToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			h.setCSRFCookie(w, token)
			ctx := model.ContextWithCSRFToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		formToken := r.FormValue("csrf_token")
		if formToken == "" {
			slog.Warn("CSRF form token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		token, err := generateCSRFToken()
		if err != nil {
			slog.Error("failed to generate CSRF token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.setCSRFCookie(w, token)

		ctx := model.ContextWithCSRFToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth checks for a valid session cookie and puts the session in the
// request context. Anything without one goes back to the login form.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		sess, err := h.store.GetSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get session", "error", err)
			h.redirectToLogin(w, r)
			return
		}
		if sess == nil {
			h.redirectToLogin(w, r)
			return
		}

		ctx := model.ContextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, views.LoginPage(""))
}

// handleLogin authenticates against the shared classroom password. A
// non-empty student id plus the right password is the whole check; wrong id
// and wrong password are deliberately indistinguishable.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	studentID := r.FormValue("student_id")
	password := r.FormValue("password")

	if studentID == "" || bcrypt.CompareHashAndPassword(h.passwordHash, []byte(password)) != nil {
		h.renderLoginError(w, r)
		return
	}

	token, err := h.store.CreateSession(studentID)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	slog.Info("student logged in", "student_id", studentID)

	cookiePath := "/"
	if h.config.BasePath != "" {
		cookiePath = h.config.BasePath + "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     cookiePath,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if err := h.store.DeleteSession(sess.Token); err != nil {
		slog.Error("failed to delete session", "error", err)
	}

	cookiePath := "/"
	if h.config.BasePath != "" {
		cookiePath = h.config.BasePath + "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	if err := views.LoginPage(appI18n.T(r.Context(), "LoginError")).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
