package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/modboard/modboard/pkg/httputil"
	"github.com/modboard/modboard/pkg/mods"
)

// ModHandlers handles the mod registry. Listing is public; mutation is
// Super only.
type ModHandlers struct {
	mods *mods.Registry
	gate *gate
}

// NewModHandlers creates a new mod handlers instance.
func NewModHandlers(registry *mods.Registry, gate *gate) *ModHandlers {
	return &ModHandlers{mods: registry, gate: gate}
}

// RegisterRoutes registers mod registry routes.
func (h *ModHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/mod/list", h.list).Methods("GET")
	router.Handle("/mod/create", h.gate.Session(h.create)).Methods("POST")
	router.Handle("/mod/delete", h.gate.Session(h.delete)).Methods("POST")
	router.Handle("/mod/reorder", h.gate.Session(h.reorder)).Methods("POST")
}

// list handles GET /mod/list
func (h *ModHandlers) list(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.mods.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, catalog)
}

// create handles POST /mod/create
func (h *ModHandlers) create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuper(w, r); !ok {
		return
	}

	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ID, "id") {
		return
	}

	mod, err := h.mods.Create(r.Context(), req.ID, req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, mod)
}

// delete handles POST /mod/delete
func (h *ModHandlers) delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuper(w, r); !ok {
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

	if err := h.mods.Delete(r.Context(), req.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// reorder handles POST /mod/reorder
func (h *ModHandlers) reorder(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuper(w, r); !ok {
		return
	}

	var req struct {
		Order []string `json:"order"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	catalog, err := h.mods.Reorder(r.Context(), req.Order)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, catalog)
}
