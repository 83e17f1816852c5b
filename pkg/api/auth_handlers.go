package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/modboard/modboard/pkg/auth"
	"github.com/modboard/modboard/pkg/httputil"
	"github.com/modboard/modboard/pkg/observability"
)

// AuthHandlers handles login, logout, and password changes.
type AuthHandlers struct {
	sessions *auth.Sessions
	metrics  *observability.Metrics
	gate     *gate
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(sessions *auth.Sessions, metrics *observability.Metrics, gate *gate) *AuthHandlers {
	return &AuthHandlers{sessions: sessions, metrics: metrics, gate: gate}
}

// RegisterRoutes registers authentication routes.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/auth/login", h.gate.Initialized(http.HandlerFunc(h.login))).Methods("POST")
	router.Handle("/auth/logout", h.gate.Session(h.logout)).Methods("POST")
	router.Handle("/auth/change-password", h.gate.Session(h.changePassword)).Methods("POST")
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		httputil.WriteError(w, err)
		return
	}
	h.metrics.LoginsTotal.WithLabelValues("success").Inc()
	httputil.WriteSuccess(w, sess)
}

// logout handles POST /auth/logout
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Logout(r.Context(), sess.Token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// changePassword handles POST /auth/change-password
func (h *AuthHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CurrentPassword, "currentPassword") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.NewPassword, "newPassword") {
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), sess.User.Username, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}
