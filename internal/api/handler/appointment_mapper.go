package handler

import (
	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

// --- Request → ports ---

func toCreateInput(req createAppointmentRequest) ports.CreateAppointmentInput {
	return ports.CreateAppointmentInput{
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		Date:       req.Date,
		Time:       req.Time,
		Reason:     req.Reason,
		Status:     req.Status,
	}
}

func toUpdateInput(req updateAppointmentRequest) ports.UpdateAppointmentInput {
	return ports.UpdateAppointmentInput{
		Date:   req.Date,
		Time:   req.Time,
		Status: req.Status,
		Reason: req.Reason,
	}
}

func toListInput(q listAppointmentsQuery) ports.ListAppointmentsInput {
	return ports.ListAppointmentsInput{
		PatientID:  q.PatientID,
		ProviderID: q.ProviderID,
		Status:     q.Status,
		Date:       q.Date,
	}
}

// --- domain → Response ---

func toAppointmentResponse(d *domain.AppointmentDetail) appointmentResponse {
	return appointmentResponse{
		ID:            d.ID,
		PatientID:     d.PatientID,
		PatientName:   d.PatientName,
		PatientEmail:  d.PatientEmail,
		ProviderID:    d.ProviderID,
		ProviderName:  d.ProviderName,
		ProviderEmail: d.ProviderEmail,
		Date:          domain.FormatDate(d.Date),
		Time:          d.Time,
		Status:        string(d.Status),
		Reason:        d.Reason,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func toAppointmentResponses(items []*domain.AppointmentDetail) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toAppointmentResponse(d))
	}
	return out
}

func toAvailabilityResponse(providerID int64, date string, slots []domain.Slot) availabilityResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{Time: s.Time, Available: s.Available})
	}
	return availabilityResponse{ProviderID: providerID, Date: date, Slots: out}
}
