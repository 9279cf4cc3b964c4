package server

import (
	"net/http"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/models"
)

func (s *Server) handleSearchDoctors(w http.ResponseWriter, r *http.Request) {
	var req backend.DoctorSearchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.Services.SearchDoctors(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDoctorSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.Services.DoctorSlots(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleBookAppointment(w http.ResponseWriter, r *http.Request) {
	var req backend.AppointmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	conf, err := s.Services.BookAppointment(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.Services.AvailableSlots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if slots == nil {
		slots = []backend.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *Server) handleBookSlot(w http.ResponseWriter, r *http.Request) {
	var req backend.BookingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Services.BookSlot(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req backend.CheckoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Services.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.Services.GetProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateProfile saves the profile and refreshes the cached user.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd backend.ProfileUpdate
	if err := decode(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.Services.UpdateProfile(r.Context(), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Identity.Replace(user)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetInsurancePlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.Plans.InsurancePlan()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"plan": nil, "label": ""})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": plan, "label": plan.Label()})
}

// handleSetInsurancePlan stores the plan on this device only; an empty
// carrier clears it.
func (s *Server) handleSetInsurancePlan(w http.ResponseWriter, r *http.Request) {
	var plan models.InsurancePlan
	if err := decode(r, &plan); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Plans.SetInsurancePlan(plan); err != nil {
		writeError(w, err)
		return
	}
	s.handleGetInsurancePlan(w, r)
}
