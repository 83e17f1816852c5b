package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/modboard/modboard/pkg/announce"
	"github.com/modboard/modboard/pkg/auth"
	"github.com/modboard/modboard/pkg/httputil"
	"github.com/modboard/modboard/pkg/observability"
	"github.com/modboard/modboard/pkg/users"
)

// AnnouncementHandlers handles the public feed, the admin surface, and
// the API-key push endpoint.
type AnnouncementHandlers struct {
	announce *announce.Store
	keys     *auth.APIKeys
	metrics  *observability.Metrics
	gate     *gate
}

// NewAnnouncementHandlers creates a new announcement handlers instance.
func NewAnnouncementHandlers(store *announce.Store, keys *auth.APIKeys, metrics *observability.Metrics, gate *gate) *AnnouncementHandlers {
	return &AnnouncementHandlers{announce: store, keys: keys, metrics: metrics, gate: gate}
}

// RegisterRoutes registers announcement routes.
func (h *AnnouncementHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/public/list", h.publicList).Methods("GET")
	router.Handle("/push/announcement", h.gate.Initialized(http.HandlerFunc(h.push))).Methods("POST")
	router.Handle("/admin/post", h.gate.Session(h.post)).Methods("POST")
	router.Handle("/admin/update", h.gate.Session(h.update)).Methods("POST")
	router.Handle("/admin/delete", h.gate.Session(h.delete)).Methods("POST")
}

// publicList handles GET /public/list
func (h *AnnouncementHandlers) publicList(w http.ResponseWriter, r *http.Request) {
	modID := r.URL.Query().Get("modId")
	if !httputil.RequireNonEmpty(w, modID, "modId") {
		return
	}

	anns, err := h.announce.List(r.Context(), modID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, anns)
}

// push handles POST /push/announcement
func (h *AnnouncementHandlers) push(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ModID         string `json:"modId"`
		Title         string `json:"title"`
		Content       string `json:"content"`
		ClientContent string `json:"clientContent"`
		Version       string `json:"version"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ModID, "modId") {
		return
	}

	key, err := h.keys.Authenticate(r.Context(), r.Header.Get("X-Api-Key"), req.ModID)
	if err != nil {
		h.metrics.APIKeyAuthTotal.WithLabelValues("failure").Inc()
		httputil.WriteError(w, err)
		return
	}
	h.metrics.APIKeyAuthTotal.WithLabelValues("success").Inc()

	// The key stands in as the acting principal: it already passed the
	// literal mod check, and its name becomes the author attribution.
	actor := users.View{
		Username:    key.Name,
		Role:        users.RoleEditor,
		Status:      users.StatusActive,
		AllowedMods: key.AllowedMods,
	}

	ann, err := h.announce.Create(r.Context(), actor, announce.CreateParams{
		ModID:         req.ModID,
		Title:         req.Title,
		Content:       req.Content,
		ClientContent: req.ClientContent,
		Version:       req.Version,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.keys.RecordUsage(r.Context(), key.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.metrics.AnnouncementsPosted.Inc()
	httputil.WriteSuccess(w, ann)
}

// post handles POST /admin/post
func (h *AnnouncementHandlers) post(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		ModID         string `json:"modId"`
		Title         string `json:"title"`
		Content       string `json:"content"`
		ClientContent string `json:"clientContent"`
		Version       string `json:"version"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ModID, "modId") {
		return
	}

	ann, err := h.announce.Create(r.Context(), sess.User, announce.CreateParams{
		ModID:         req.ModID,
		Title:         req.Title,
		Content:       req.Content,
		ClientContent: req.ClientContent,
		Version:       req.Version,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.metrics.AnnouncementsPosted.Inc()
	httputil.WriteSuccess(w, ann)
}

// update handles POST /admin/update
func (h *AnnouncementHandlers) update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		ModID         string  `json:"modId"`
		ID            string  `json:"id"`
		Title         string  `json:"title"`
		Content       string  `json:"content"`
		ClientContent string  `json:"clientContent"`
		Version       *string `json:"version"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ModID, "modId") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ID, "id") {
		return
	}

	ann, err := h.announce.Update(r.Context(), sess.User, announce.UpdateParams{
		ModID:         req.ModID,
		ID:            req.ID,
		Title:         req.Title,
		Content:       req.Content,
		ClientContent: req.ClientContent,
		Version:       req.Version,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, ann)
}

// delete handles POST /admin/delete
func (h *AnnouncementHandlers) delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		ModID string `json:"modId"`
		ID    string `json:"id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ModID, "modId") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ID, "id") {
		return
	}

	if err := h.announce.Delete(r.Context(), sess.User, req.ModID, req.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}
