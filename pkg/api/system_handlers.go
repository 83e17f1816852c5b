package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/modboard/modboard/pkg/httputil"
	"github.com/modboard/modboard/pkg/system"
)

// SystemHandlers handles bootstrap status and initialization.
type SystemHandlers struct {
	bootstrap *system.Bootstrap
}

// NewSystemHandlers creates a new system handlers instance.
func NewSystemHandlers(bootstrap *system.Bootstrap) *SystemHandlers {
	return &SystemHandlers{bootstrap: bootstrap}
}

// RegisterRoutes registers system routes.
func (h *SystemHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/system/status", h.status).Methods("GET")
	router.HandleFunc("/system/init", h.init).Methods("POST")
}

// status handles GET /system/status
func (h *SystemHandlers) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.bootstrap.Status(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, st)
}

// init handles POST /system/init
func (h *SystemHandlers) init(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
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

	st, err := h.bootstrap.Init(r.Context(), r.Header.Get("X-Init-Token"), req.Username, req.Password, req.DisplayName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, st)
}
