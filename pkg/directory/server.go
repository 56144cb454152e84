package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ingabireol/bizclient/pkg/errors"
	"github.com/ingabireol/bizclient/pkg/logging"
)

// Server is the HTTP server for the service directory.
type Server struct {
	registry  *Registry
	listener  net.Listener
	server    *http.Server
	transport TransportConfig
	logger    logging.Logger
}

// NewServer creates a new directory server.
func NewServer(registry *Registry, transport TransportConfig, logger logging.Logger) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	listener, err := CreateListener(transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	s := &Server{
		registry:  registry,
		listener:  listener,
		transport: transport,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bind", s.handleBind)
	mux.HandleFunc("/api/v1/lookup/", s.handleLookup)
	mux.HandleFunc("/api/v1/unbind/", s.handleUnbind)
	mux.HandleFunc("/api/v1/services", s.handleServices)
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start starts the server.
func (s *Server) Start(ctx context.Context) error {
	address := GetListenerAddress(s.listener)
	s.logger.Infof("Starting service directory server on %s", address)

	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Infof("Stopping service directory server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.registry.Stop()

	return nil
}

// GetAddress returns the server's listen address.
func (s *Server) GetAddress() string {
	return GetListenerAddress(s.listener)
}

// HTTP Handlers

func (s *Server) handleBind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := s.registry.Bind(req); err != nil {
		s.sendErrorFromDomainError(w, err)
		return
	}

	s.sendSuccess(w, map[string]bool{"success": true})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	// Path: /api/v1/lookup/:name
	prefix := "/api/v1/lookup/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		s.sendError(w, http.StatusBadRequest, "invalid path", nil)
		return
	}

	name := ServiceName(r.URL.Path[len(prefix):])
	if name == "" {
		s.sendError(w, http.StatusBadRequest, "service name is required", nil)
		return
	}

	endpoint, err := s.registry.Lookup(name)
	if err != nil {
		s.sendErrorFromDomainError(w, err)
		return
	}

	s.sendSuccess(w, LookupResponse{
		Name:     name,
		Endpoint: endpoint,
	})
}

func (s *Server) handleUnbind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	// Path: /api/v1/unbind/:name
	prefix := "/api/v1/unbind/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		s.sendError(w, http.StatusBadRequest, "invalid path", nil)
		return
	}

	name := ServiceName(r.URL.Path[len(prefix):])
	if name == "" {
		s.sendError(w, http.StatusBadRequest, "service name is required", nil)
		return
	}

	processIDStr := r.URL.Query().Get("processID")
	processID := 0
	if processIDStr != "" {
		if _, err := fmt.Sscanf(processIDStr, "%d", &processID); err != nil {
			s.sendError(w, http.StatusBadRequest, "invalid process ID", err)
			return
		}
	}

	if err := s.registry.Unbind(name, processID); err != nil {
		s.sendErrorFromDomainError(w, err)
		return
	}

	s.sendSuccess(w, map[string]bool{"success": true})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	s.sendSuccess(w, ListResponse{
		Services: s.registry.ListServices(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	boundServices, uptime := s.registry.GetStats()

	s.sendSuccess(w, HealthResponse{
		Status:        "healthy",
		BoundServices: boundServices,
		Uptime:        uptime.String(),
	})
}

// Helper methods

func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success: false,
		Error:   message,
	}

	if err != nil {
		response.Context = map[string]string{"details": err.Error()}
	}

	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		s.logger.Errorf("Failed to encode error response: %v", encErr)
	}

	s.logger.Warnf("Request error: %s (status: %d)", message, statusCode)
}

func (s *Server) sendErrorFromDomainError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	if errors.IsNotFoundError(err) {
		statusCode = http.StatusNotFound
		message = "not found"
	} else if errors.IsValidationError(err) {
		statusCode = http.StatusBadRequest
		message = "validation error"
	}

	s.sendError(w, statusCode, message, err)
}
