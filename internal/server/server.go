package server

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ulsys/uls/internal/logging"
	"github.com/ulsys/uls/internal/model"
	"github.com/ulsys/uls/internal/store"
)

// apiKeyHeader is the authentication header checked on protected routes.
const apiKeyHeader = "X-API-KEY"

// keyPrefix marks keys issued by this service.
const keyPrefix = "uls_"

// Server is the HTTP + WebSocket API surface of the logging backend.
type Server struct {
	cfg      Config
	store    *store.Store
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
	hub      *streamHub
}

// NewServer creates a Server with its own store under cfg.StorageRoot.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	st, err := store.Open(cfg.StorageRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:    cfg,
		store:  st,
		router: r,
		logger: logger,
		hub:    newStreamHub(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

// Store returns the underlying store for advanced use (tests, etc.).
func (s *Server) Store() *store.Store {
	return s.store
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/key/generate", s.optionsHandler("POST"))
	r.Options("/api/health", s.optionsHandler("GET"))
	r.Options("/api/logs", s.optionsHandler("GET, POST"))
	r.Options("/api/logs/export", s.optionsHandler("GET"))
	r.Options("/api/logs/clear", s.optionsHandler("POST"))

	// Unauthenticated
	r.Post("/api/key/generate", s.handleGenerateKey)
	r.Get("/api/health", s.handleHealth)

	// Everything under the API key
	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Get("/api/logs", s.handleListLogs)
		r.Post("/api/logs", s.handleSubmitLog)
		r.Get("/api/logs/export", s.handleExportLogs)
		r.Post("/api/logs/clear", s.handleClearLogs)
		r.Get("/api/logs/stream", s.handleStreamLogs)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+apiKeyHeader)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// requireAPIKey rejects requests whose X-API-KEY header does not match a
// previously generated key.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		ok, err := s.store.ValidKey(r.Context(), key)
		if err != nil {
			s.logger.Error("validating api key", logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusInternalServerError, "key validation failed")
			return
		}
		if !ok {
			s.logger.Warn("rejected request with invalid api key",
				logging.Field{Key: "path", Value: r.URL.Path})
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the stream hub and closes the store.
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.StatusResponse{Status: "error", Message: msg})
}

// --- HTTP handlers ---

func (s *Server) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		s.logger.Error("generating api key", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "key generation failed")
		return
	}
	key := keyPrefix + hex.EncodeToString(raw[:])

	if err := s.store.AddKey(r.Context(), key); err != nil {
		s.logger.Error("storing api key", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("generated api key")
	writeJSON(w, http.StatusCreated, model.KeyResponse{
		Status: "success",
		APIKey: key,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.StatusResponse{
		Status:  "success",
		Message: "API running",
	})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListLogs(r.Context())
	if err != nil {
		s.logger.Warn("listing logs", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("listed logs", logging.Field{Key: "count", Value: len(logs)})
	writeJSON(w, http.StatusOK, model.ListLogsResponse{
		Status:  "success",
		Logs:    logs,
		Results: logs, // compatibility
		Count:   len(logs),
	})
}

func (s *Server) handleSubmitLog(w http.ResponseWriter, r *http.Request) {
	// A malformed body is treated as an empty submission; defaults fill
	// the record, matching the lenient behavior clients rely on.
	var body model.SubmitLogRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	entry := body.Entry(time.Now())

	if err := s.store.AppendLog(r.Context(), entry); err != nil {
		s.logger.Warn("saving log", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.hub.broadcast(entry)

	s.logger.Info("saved log",
		logging.Field{Key: "service", Value: entry.Service},
		logging.Field{Key: "level", Value: entry.Level})
	writeJSON(w, http.StatusCreated, model.SubmitLogResponse{
		Status:  "success",
		Message: "Log saved",
		Log:     &entry,
	})
}

func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	path, data, err := s.store.ExportCSV(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoLogs) {
			writeError(w, http.StatusBadRequest, "No logs to export")
			return
		}
		s.logger.Warn("exporting logs", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save CSV: %v", err))
		return
	}

	s.logger.Info("served csv export", logging.Field{Key: "path", Value: path})
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="logs.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearLogs(r.Context()); err != nil {
		s.logger.Warn("clearing logs", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("cleared logs")
	writeJSON(w, http.StatusOK, model.StatusResponse{
		Status:  "success",
		Message: "Logs cleared",
	})
}

// handleStreamLogs upgrades to a WebSocket and forwards every accepted log
// entry to the subscriber until it disconnects.
func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	id, entries := s.hub.subscribe()
	defer s.hub.unsubscribe(id)

	s.logger.Info("log stream subscriber connected", logging.Field{Key: "subscriber", Value: id})

	for entry := range entries {
		if err := conn.WriteJSON(entry); err != nil {
			// Assume the client disconnected.
			return
		}
	}
}
