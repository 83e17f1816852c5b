package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/modboard/modboard/pkg/auth"
	"github.com/modboard/modboard/pkg/httputil"
)

// APIKeyHandlers handles API key management.
type APIKeyHandlers struct {
	keys *auth.APIKeys
	gate *gate
}

// NewAPIKeyHandlers creates a new API key handlers instance.
func NewAPIKeyHandlers(keys *auth.APIKeys, gate *gate) *APIKeyHandlers {
	return &APIKeyHandlers{keys: keys, gate: gate}
}

// RegisterRoutes registers API key routes.
func (h *APIKeyHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/apikey/create", h.gate.Session(h.create)).Methods("POST")
	router.Handle("/apikey/revoke", h.gate.Session(h.revoke)).Methods("POST")
	router.Handle("/apikey/list", h.gate.Session(h.list)).Methods("GET")
}

// create handles POST /apikey/create
func (h *APIKeyHandlers) create(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string   `json:"name"`
		AllowedMods []string `json:"allowedMods"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	info, token, err := h.keys.Create(r.Context(), sess.User, req.Name, req.AllowedMods)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The plaintext token appears in this response and nowhere else.
	httputil.WriteSuccess(w, struct {
		Key   auth.KeyInfo `json:"key"`
		Token string       `json:"token"`
	}{Key: info, Token: token})
}

// revoke handles POST /apikey/revoke
func (h *APIKeyHandlers) revoke(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ID, "id") {
		return
	}

	info, err := h.keys.Revoke(r.Context(), sess.User, req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, info)
}

// list handles GET /apikey/list
func (h *APIKeyHandlers) list(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	infos, err := h.keys.List(r.Context(), sess.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, infos)
}
