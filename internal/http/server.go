// Package http exposes the JSON API: registration, login, and per-user
// account and transaction management behind bearer-token auth.
package http

import (
	"net/http"

	"finsight/internal/auth"
	"finsight/internal/config"
	applog "finsight/internal/log"
	"finsight/internal/services"
)

type Server struct {
	http.Server
	service *services.LedgerService
	tokens  *auth.TokenManager
	cfg     *config.Config
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, service *services.LedgerService, tokens *auth.TokenManager) *Server {
	mux := http.NewServeMux()
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentHTTP,
	})

	s := &Server{
		Server: http.Server{
			Addr:    ":" + cfg.Port,
			Handler: applog.Middleware(logger)(mux),
		},
		service: service,
		tokens:  tokens,
		cfg:     cfg,
	}

	mux.HandleFunc("/", s.wrap(s.handleRoot))
	mux.HandleFunc("/health", s.wrap(s.handleHealth))
	mux.HandleFunc("/api/register", s.wrap(s.handleRegister))
	mux.HandleFunc("/api/login", s.wrap(s.handleLogin))
	mux.HandleFunc("/api/accounts", s.wrap(s.withAuth(s.handleAccounts)))
	mux.HandleFunc("/api/transactions", s.wrap(s.withAuth(s.handleTransactions)))

	return s
}

// wrap applies the common middleware chain. CORS runs outermost so preflight
// requests never hit the auth gate.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return s.withCORS(s.withRequestLogging(next))
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, r, notFoundRoute)
		return
	}
	s.handleHealth(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Service: "finsight"})
}
