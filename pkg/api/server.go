// Package api wires the HTTP surface: routing, middleware, and one
// handler group per concern.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/modboard/modboard/pkg/announce"
	"github.com/modboard/modboard/pkg/auth"
	"github.com/modboard/modboard/pkg/httputil"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/middleware"
	"github.com/modboard/modboard/pkg/mods"
	"github.com/modboard/modboard/pkg/observability"
	"github.com/modboard/modboard/pkg/system"
	"github.com/modboard/modboard/pkg/users"
)

// Deps are the services the server routes to.
type Deps struct {
	Logger    *logrus.Logger
	Metrics   *observability.Metrics
	Store     kv.Store
	Sessions  *auth.Sessions
	APIKeys   *auth.APIKeys
	Users     *users.Service
	Mods      *mods.Registry
	Announce  *announce.Store
	Bootstrap *system.Bootstrap
}

// Server owns the router and the middleware chain.
type Server struct {
	router *mux.Router
	logger *logrus.Logger
}

// NewServer builds the router with all routes registered.
func NewServer(deps Deps) *Server {
	router := mux.NewRouter()
	router.Use(middleware.Logging(deps.Logger, deps.Metrics))
	router.Use(middleware.Recovery(deps.Logger))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "unknown route")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "unknown route")
	})

	gate := &gate{
		bootstrap: deps.Bootstrap,
		sessions:  middleware.NewSessionAuth(deps.Sessions, false),
	}

	handlers := []interface {
		RegisterRoutes(router *mux.Router)
	}{
		NewSystemHandlers(deps.Bootstrap),
		NewAuthHandlers(deps.Sessions, deps.Metrics, gate),
		NewUserHandlers(deps.Users, gate),
		NewModHandlers(deps.Mods, gate),
		NewAPIKeyHandlers(deps.APIKeys, gate),
		NewAnnouncementHandlers(deps.Announce, deps.APIKeys, deps.Metrics, gate),
	}
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	router.HandleFunc("/healthz", observability.HealthHandler(deps.Store)).Methods("GET")
	router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")

	return &Server{router: router, logger: deps.Logger}
}

// Router exposes the configured router for the HTTP server and tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// gate composes the initialized check and session authentication around
// protected handlers.
type gate struct {
	bootstrap *system.Bootstrap
	sessions  *middleware.SessionAuth
}

// Initialized rejects requests with 409 until bootstrap has run.
func (g *gate) Initialized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := g.bootstrap.Initialized(r.Context())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if !ok {
			httputil.WriteErrorMessage(w, http.StatusConflict, "system is not initialized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Session requires an initialized system and a valid bearer session.
func (g *gate) Session(h http.HandlerFunc) http.Handler {
	return g.Initialized(g.sessions.Handler(h))
}

// requireSuper enforces Super role on an already-authenticated request.
func requireSuper(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	sess := middleware.Session(r)
	if sess == nil {
		httputil.WriteUnauthorized(w, "invalid or expired session")
		return nil, false
	}
	if sess.User.Role != users.RoleSuper {
		httputil.WriteForbidden(w, "admin access required")
		return nil, false
	}
	return sess, true
}

// requireSession fetches the session injected by the middleware.
func requireSession(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	sess := middleware.Session(r)
	if sess == nil {
		httputil.WriteUnauthorized(w, "invalid or expired session")
		return nil, false
	}
	return sess, true
}
