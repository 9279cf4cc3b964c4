package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/comigor/healthassist-go/internal/models"
)

// DoctorSearchRequest is the body of POST /doctors/search.
type DoctorSearchRequest struct {
	Specialty  string `json:"specialty,omitempty"`
	Location   string `json:"location,omitempty"`
	Insurance  string `json:"insurance,omitempty"`
	DoctorName string `json:"doctorName,omitempty"`
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"pageSize,omitempty"`
}

// AppointmentRequest is the body of POST /doctors/book.
type AppointmentRequest struct {
	DoctorID     string `json:"doctorId"`
	TimeSlot     string `json:"timeSlot"`
	PatientName  string `json:"patientName"`
	PatientEmail string `json:"patientEmail"`
	PatientPhone string `json:"patientPhone,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Insurance    string `json:"insurance,omitempty"`
}

// AppointmentConfirmation is the directory's booking acknowledgement.
type AppointmentConfirmation struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	BookingURL string `json:"bookingUrl"`
}

// SearchDoctors queries the doctor directory.
func (c *Client) SearchDoctors(ctx context.Context, req DoctorSearchRequest) (*models.DoctorSearchResult, error) {
	var out models.DoctorSearchResult
	if err := c.do(ctx, http.MethodPost, "/doctors/search", req, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// DoctorSlots lists a doctor's open appointment slots.
func (c *Client) DoctorSlots(ctx context.Context, doctorID string) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/doctors/"+url.PathEscape(doctorID)+"/slots", nil, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return out, nil
}

// BookAppointment requests an appointment with a doctor.
func (c *Client) BookAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentConfirmation, error) {
	var out AppointmentConfirmation
	if err := c.do(ctx, http.MethodPost, "/doctors/book", req, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}
