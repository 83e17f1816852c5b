package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/modboard/modboard/pkg/httputil"
	"github.com/modboard/modboard/pkg/users"
)

// UserHandlers handles user administration. Every route is Super only.
type UserHandlers struct {
	users *users.Service
	gate  *gate
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(service *users.Service, gate *gate) *UserHandlers {
	return &UserHandlers{users: service, gate: gate}
}

// RegisterRoutes registers user administration routes.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/user/list", h.gate.Session(h.list)).Methods("GET")
	router.Handle("/user/create", h.gate.Session(h.create)).Methods("POST")
	router.Handle("/user/update", h.gate.Session(h.update)).Methods("POST")
	router.Handle("/user/delete", h.gate.Session(h.delete)).Methods("POST")
	router.Handle("/user/set-status", h.gate.Session(h.setStatus)).Methods("POST")
	router.Handle("/user/reset-password", h.gate.Session(h.resetPassword)).Methods("POST")
}

// list handles GET /user/list
func (h *UserHandlers) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuper(w, r); !ok {
		return
	}
	views, err := h.users.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, views)
}

// create handles POST /user/create
func (h *UserHandlers) create(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSuper(w, r)
	if !ok {
		return
	}

	var req struct {
		Username    string   `json:"username"`
		Password    string   `json:"password"`
		Role        string   `json:"role"`
		DisplayName string   `json:"displayName"`
		AllowedMods []string `json:"allowedMods"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Role, "role") {
		return
	}

	view, err := h.users.Create(r.Context(), sess.User, req.Username, req.Password, req.Role, req.DisplayName, req.AllowedMods)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, view)
}

// update handles POST /user/update
func (h *UserHandlers) update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSuper(w, r)
	if !ok {
		return
	}

	var req struct {
		Username    string    `json:"username"`
		DisplayName *string   `json:"displayName"`
		AllowedMods *[]string `json:"allowedMods"`
		Role        *string   `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}

	view, err := h.users.Update(r.Context(), sess.User, req.Username, users.UpdateParams{
		DisplayName: req.DisplayName,
		AllowedMods: req.AllowedMods,
		Role:        req.Role,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, view)
}

// delete handles POST /user/delete
func (h *UserHandlers) delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSuper(w, r)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}

	if err := h.users.Delete(r.Context(), sess.User, req.Username); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// setStatus handles POST /user/set-status
func (h *UserHandlers) setStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSuper(w, r)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username"`
		Status   string `json:"status"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Status, "status") {
		return
	}

	view, err := h.users.SetStatus(r.Context(), sess.User, req.Username, req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, view)
}

// resetPassword handles POST /user/reset-password
func (h *UserHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSuper(w, r)
	if !ok {
		return
	}

	var req struct {
		Username    string `json:"username"`
		NewPassword string `json:"newPassword"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.NewPassword, "newPassword") {
		return
	}

	if err := h.users.ResetPassword(r.Context(), sess.User, req.Username, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}
