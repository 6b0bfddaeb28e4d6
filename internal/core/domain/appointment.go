package domain

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus represents the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusBlocked   AppointmentStatus = "blocked"
)

// validTransitions defines the allowed state machine transitions.
var validTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusBooked:  {StatusCompleted, StatusCancelled},
	StatusBlocked: {StatusCancelled},
}

// ParseStatus converts raw input into an AppointmentStatus.
func ParseStatus(s string) (AppointmentStatus, error) {
	switch st := AppointmentStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusBooked, StatusCompleted, StatusCancelled, StatusBlocked:
		return st, nil
	default:
		return "", Invalid(fmt.Sprintf("unknown status %q", s))
	}
}

// IsActive reports whether the status occupies its slot.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusBooked || s == StatusBlocked
}

// IsTerminal reports whether no further transitions are possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether a transition from s to next is valid.
// Writing the current status again is always allowed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is the core aggregate. Blocked appointments are provider
// self-holds and carry PatientID == ProviderID.
type Appointment struct {
	ID         int64
	PatientID  int64
	ProviderID int64
	Date       time.Time // civil date at UTC midnight
	Time       string    // slot label, e.g. "10:00"
	Status     AppointmentStatus
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Involves reports whether userID is a party to the appointment.
func (a *Appointment) Involves(userID int64) bool {
	return a.PatientID == userID || a.ProviderID == userID
}

// Slot returns the provider slot this appointment sits in.
func (a *Appointment) Slot() SlotKey {
	return SlotKey{ProviderID: a.ProviderID, Date: a.Date, Time: a.Time}
}

// AppointmentDetail is an appointment joined with the display names of its parties.
type AppointmentDetail struct {
	Appointment
	PatientName   string
	PatientEmail  string
	ProviderName  string
	ProviderEmail string
}

// SlotKey identifies one bookable unit of a provider's schedule.
type SlotKey struct {
	ProviderID int64
	Date       time.Time
	Time       string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%d:%s:%s", k.ProviderID, FormatDate(k.Date), k.Time)
}

// ClaimKind distinguishes what is holding a slot.
type ClaimKind int

const (
	// ClaimBooking is a patient appointment.
	ClaimBooking ClaimKind = iota
	// ClaimHold is a provider self-block.
	ClaimHold
)

func (k ClaimKind) String() string {
	if k == ClaimHold {
		return "hold"
	}
	return "booking"
}

// SlotClaim describes the active appointment occupying a slot.
type SlotClaim struct {
	Kind          ClaimKind
	AppointmentID int64
	PatientID     int64
}

// ClaimOf returns the claim a on its slot, or nil when a is not active.
func ClaimOf(a *Appointment) *SlotClaim {
	switch a.Status {
	case StatusBooked:
		return &SlotClaim{Kind: ClaimBooking, AppointmentID: a.ID, PatientID: a.PatientID}
	case StatusBlocked:
		return &SlotClaim{Kind: ClaimHold, AppointmentID: a.ID}
	default:
		return nil
	}
}

// Slot is one entry of a provider's daily availability.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}
