package handler

import "time"

// --- Request types ---

type createAppointmentRequest struct {
	PatientID  int64  `json:"patientId"  example:"1"`
	ProviderID int64  `json:"providerId" example:"2"`
	Date       string `json:"date"       example:"2026-01-15"`
	Time       string `json:"time"       example:"10:00"`
	Reason     string `json:"reason"     example:"Annual checkup" validate:"max=500"`
	Status     string `json:"status"     example:"booked"         validate:"omitempty,oneof=booked blocked"`
}

type updateAppointmentRequest struct {
	Date   *string `json:"date"   example:"2026-01-16"`
	Time   *string `json:"time"   example:"11:00"`
	Status *string `json:"status" example:"cancelled" validate:"omitempty,oneof=booked completed cancelled blocked"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type listAppointmentsQuery struct {
	PatientID  int64  `query:"patientId"`
	ProviderID int64  `query:"providerId"`
	Status     string `query:"status"`
	Date       string `query:"date"`
}

type availabilityQuery struct {
	Date string `query:"date" validate:"required"`
}

// --- Response types ---

type appointmentResponse struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patientId"`
	PatientName   string    `json:"patientName"`
	PatientEmail  string    `json:"patientEmail,omitempty"`
	ProviderID    int64     `json:"providerId"`
	ProviderName  string    `json:"providerName"`
	ProviderEmail string    `json:"providerEmail,omitempty"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type slotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type availabilityResponse struct {
	ProviderID int64          `json:"providerId"`
	Date       string         `json:"date"`
	Slots      []slotResponse `json:"slots"`
}
