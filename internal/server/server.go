// Package server provides the HTTP handlers and routing for the gateway.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"monzo-mcp/internal/config"
	"monzo-mcp/internal/monzo"
	"monzo-mcp/internal/openai"
	"monzo-mcp/internal/tools"
)

// Origins the browser frontend is served from during development. Anything
// else falls back to the first entry.
var allowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// Server contains the configured router, toolbox, and config for the gateway.
type Server struct {
	cfg     *config.Config
	router  *chi.Mux
	toolbox *tools.Toolbox
	log     zerolog.Logger
}

// New constructs a Server with middleware and routes configured.
func New(cfg *config.Config, log zerolog.Logger) *Server {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	bank := monzo.New(cfg.MonzoAPIURL, cfg.MonzoAccessToken, httpClient)
	ai := openai.New(cfg.OpenAIAPIURL, cfg.OpenAIAPIKey, httpClient)

	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		toolbox: tools.NewToolbox(cfg, bank, ai, log),
		log:     log,
	}
	s.router.Use(middleware.RealIP)
	s.router.Use(s.cors)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/mcp", func(r chi.Router) {
		r.Get("/tools", s.handleManifest)
		r.Post("/run", s.handleRun)
	})
	s.router.NotFound(s.handleFallback)
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// cors sets the fixed CORS contract on every response and answers
// preflights directly so OPTIONS works on any path.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := allowedOrigins[0]
		if requested := r.Header.Get("Origin"); requested != "" {
			for _, allowed := range allowedOrigins {
				if requested == allowed {
					origin = requested
					break
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFallback acknowledges any unrecognized path so probes against the
// root see a live server rather than a 404.
func (s *Server) handleFallback(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("monzo-mcp gateway is running"))
}

// handleRun validates a tool invocation and dispatches it. Validation order
// matters: malformed body, then missing fields, then credentials, then tool
// lookup. No upstream call happens before the credential check passes.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	if req.Tool == "" || req.Params == nil {
		http.Error(w, "Missing required fields: tool and params", http.StatusBadRequest)
		return
	}
	if !s.cfg.Configured() {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Server not configured: missing API credentials"})
		return
	}

	result, err := s.toolbox.Execute(r.Context(), req.Tool, req.Params)
	if err != nil {
		var toolErr *tools.Error
		if errors.As(err, &toolErr) {
			s.writeJSON(w, toolErr.Status, map[string]string{"error": toolErr.Message})
			return
		}
		s.log.Error().Str("tool", req.Tool).Err(err).Msg("tool execution failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
