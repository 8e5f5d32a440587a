package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	svc          *Service
	secureCookie bool
}

func NewHandlers(svc *Service, secureCookie bool) *Handlers {
	return &Handlers{svc: svc, secureCookie: secureCookie}
}

// Routes mounts register, login, logout and me.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.With(SessionMiddleware(h.svc)).Get("/me", h.Me)
	return r
}

type credentials struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type userResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func toResponse(u User) userResponse {
	return userResponse{UserID: u.UserID, Email: u.Email, DisplayName: u.DisplayName}
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, MsgMissingFields)
		return
	}
	u, sess, err := h.svc.Register(r.Context(), c.DisplayName, c.Email, c.Password)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	h.setCookie(w, sess)
	writeJSON(w, http.StatusCreated, toResponse(u))
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, MsgMissingCredentials)
		return
	}
	u, sess, err := h.svc.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	h.setCookie(w, sess)
	writeJSON(w, http.StatusOK, toResponse(u))
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if err := h.svc.Logout(r.Context(), cookie.Value); err != nil {
			h.fail(w, "logout", err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, MsgNoSession)
		return
	}
	u, err := h.svc.User(r.Context(), id)
	if err != nil {
		h.fail(w, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(u))
}

func (h *Handlers) setCookie(w http.ResponseWriter, sess Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.SessionID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) fail(w http.ResponseWriter, op string, err error) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		writeError(w, StatusFor(authErr), authErr.Message)
		return
	}
	log.Printf("[auth] %s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, "Error interno del servidor.")
}

// StatusFor maps a rejection to its HTTP status.
func StatusFor(e *AuthError) int {
	switch e.Kind {
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[auth] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
