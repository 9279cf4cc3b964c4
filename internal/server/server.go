// Package server exposes the session manager and its collaborators as a
// local JSON API for a view layer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/comigor/healthassist-go/internal/auth"
	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/chat"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
	"github.com/comigor/healthassist-go/internal/session"
)

// Sessions is the session manager surface served over HTTP.
type Sessions interface {
	Mode() session.Mode
	ActiveID() string
	Conversations() []models.Conversation
	Conversation(id string) (models.Conversation, bool)
	NewConversation(ctx context.Context) (models.Conversation, error)
	Select(id string) bool
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	Flush(ctx context.Context, conversationID string) error
	Pending(conversationID string) []string
	Reconcile(ctx context.Context) error
	SignIn(ctx context.Context) error
	SignOut() error
}

// Sender sends chat messages.
type Sender interface {
	Send(ctx context.Context, conversationID, text string) (models.Message, error)
	ResetSessions()
}

// Services are the backend endpoints proxied as they are.
type Services interface {
	Health(ctx context.Context) error
	SearchDoctors(ctx context.Context, req backend.DoctorSearchRequest) (*models.DoctorSearchResult, error)
	DoctorSlots(ctx context.Context, doctorID string) ([]string, error)
	BookAppointment(ctx context.Context, req backend.AppointmentRequest) (*backend.AppointmentConfirmation, error)
	AvailableSlots(ctx context.Context) ([]backend.Slot, error)
	BookSlot(ctx context.Context, req backend.BookingRequest) (*backend.BookingResult, error)
	CreateCheckoutSession(ctx context.Context, req backend.CheckoutRequest) (*backend.CheckoutSession, error)
	GetProfile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, upd backend.ProfileUpdate) (*models.User, error)
}

// Plans stores the insurance plan preference.
type Plans interface {
	InsurancePlan() (models.InsurancePlan, bool)
	SetInsurancePlan(plan models.InsurancePlan) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Sessions Sessions
	Sender   Sender
	Identity *auth.Identity
	Services Services
	Plans    Plans
	Events   *EventLog
}

// Server is the view API.
type Server struct {
	Deps
	mux *http.ServeMux
}

// New creates a Server with all routes registered.
func New(deps Deps) *Server {
	if deps.Events == nil {
		deps.Events = NewEventLog(0)
	}
	s := &Server{Deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/session", s.handleSession)
	s.mux.HandleFunc("POST /api/session/signin", s.handleSignIn)
	s.mux.HandleFunc("POST /api/session/signout", s.handleSignOut)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)

	s.mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	s.mux.HandleFunc("POST /api/conversations", s.handleNewConversation)
	s.mux.HandleFunc("POST /api/conversations/reconcile", s.handleReconcile)
	s.mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	s.mux.HandleFunc("PATCH /api/conversations/{id}", s.handleRename)
	s.mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/conversations/{id}/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/conversations/{id}/messages", s.handleSend)
	s.mux.HandleFunc("POST /api/conversations/{id}/flush", s.handleFlush)

	s.mux.HandleFunc("POST /api/doctors/search", s.handleSearchDoctors)
	s.mux.HandleFunc("GET /api/doctors/{id}/slots", s.handleDoctorSlots)
	s.mux.HandleFunc("POST /api/doctors/book", s.handleBookAppointment)
	s.mux.HandleFunc("GET /api/scheduling/slots", s.handleAvailableSlots)
	s.mux.HandleFunc("POST /api/scheduling/book", s.handleBookSlot)
	s.mux.HandleFunc("POST /api/payment/checkout", s.handleCheckout)
	s.mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	s.mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
	s.mux.HandleFunc("GET /api/preferences/insurance", s.handleGetInsurancePlan)
	s.mux.HandleFunc("PUT /api/preferences/insurance", s.handleSetInsurancePlan)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.L.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Services.Health(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, session.ErrUnknownConversation), errors.Is(err, backend.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, auth.ErrMissingToken), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, chat.ErrSendInFlight), errors.Is(err, session.ErrSessionChanged):
		status = http.StatusConflict
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, backend.ErrNoIdentity):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrTornDown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrNotHydrated), errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		logger.L.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var (
	_ Sessions = (*session.Manager)(nil)
	_ Sender   = (*chat.Sender)(nil)
	_ Services = (*backend.Client)(nil)
)
