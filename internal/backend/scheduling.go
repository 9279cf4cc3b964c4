package backend

import (
	"context"
	"net/http"
)

// Slot is an open consultation slot.
type Slot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	DayOfWeek string `json:"dayOfWeek"`
}

// ContactDetails are the fields the contact wizard collects.
type ContactDetails struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	Service         string `json:"service,omitempty"`
	Message         string `json:"message,omitempty"`
	DisplayDateTime string `json:"displayDateTime,omitempty"`
}

// BookingRequest is the body of POST /scheduling/book.
type BookingRequest struct {
	StartTime string `json:"startTime"`
	ContactDetails
}

// BookingResult is the calendar's answer to a booking.
type BookingResult struct {
	Success  bool   `json:"success"`
	EventID  string `json:"eventId,omitempty"`
	HTMLLink string `json:"htmlLink,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CheckoutRequest is the body of POST /payment/create-checkout-session.
type CheckoutRequest struct {
	SlotStart string `json:"slotStart"`
	ContactDetails
}

// CheckoutSession is where the payment handoff redirects to.
type CheckoutSession struct {
	Success     bool   `json:"success"`
	SessionID   string `json:"sessionId,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AvailableSlots lists open consultation slots.
func (c *Client) AvailableSlots(ctx context.Context) ([]Slot, error) {
	var out struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.do(ctx, http.MethodGet, "/scheduling/slots", nil, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// BookSlot books a free consultation slot.
func (c *Client) BookSlot(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	var out BookingResult
	if err := c.do(ctx, http.MethodPost, "/scheduling/book", req, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckoutSession starts the payment handoff for a paid consultation.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/payment/create-checkout-session", req, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}
