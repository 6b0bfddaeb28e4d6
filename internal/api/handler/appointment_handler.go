package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

// AppointmentHandler handles HTTP requests for appointment operations.
type AppointmentHandler struct {
	service ports.AppointmentService
}

func NewAppointmentHandler(service ports.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// List handles GET /api/appointments.
//
// Patients only ever see their own appointments and providers their own
// schedule; people filters are honoured for admins only.
//
// @Summary      List appointments visible to the caller
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        patientId   query     int     false  "Patient id (admin only)"
// @Param        providerId  query     int     false  "Provider id (admin only)"
// @Param        status      query     string  false  "booked, completed, cancelled or blocked"
// @Param        date        query     string  false  "YYYY-MM-DD"
// @Success      200         {object}  envelope{data=[]appointmentResponse}
// @Failure      400         {object}  errorResponse
// @Failure      401         {object}  errorResponse
// @Router       /api/appointments [get]
func (h *AppointmentHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var q listAppointmentsQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	items, err := h.service.ListAppointments(c.Request().Context(), actor, toListInput(q))
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, toAppointmentResponses(items))
}

// Get handles GET /api/appointments/:id.
//
// @Summary      Get an appointment
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Appointment id"
// @Success      200  {object}  envelope{data=appointmentResponse}
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/appointments/{id} [get]
func (h *AppointmentHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	appt, err := h.service.GetAppointment(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAppointmentResponse(appt))
}

// Create handles POST /api/appointments.
//
// @Summary      Book an appointment or block a slot
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAppointmentRequest  true  "Appointment details"
// @Success      201   {object}  envelope{data=appointmentResponse}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/appointments [post]
func (h *AppointmentHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	appt, err := h.service.CreateAppointment(c.Request().Context(), actor, toCreateInput(req))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusCreated, "Appointment booked successfully", toAppointmentResponse(appt))
}

// Update handles PATCH /api/appointments/:id.
//
// @Summary      Reschedule, change status or edit the reason of an appointment
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                       true  "Appointment id"
// @Param        body  body      updateAppointmentRequest  true  "Fields to change"
// @Success      200   {object}  envelope{data=appointmentResponse}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/appointments/{id} [patch]
func (h *AppointmentHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	appt, err := h.service.UpdateAppointment(c.Request().Context(), actor, id, toUpdateInput(req))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "Appointment updated", toAppointmentResponse(appt))
}

// Delete handles DELETE /api/appointments/:id.
//
// @Summary      Delete an appointment
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Appointment id"
// @Success      200  {object}  envelope
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteAppointment(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "Deleted", nil)
}

// Availability handles GET /api/users/providers/:id/availability.
//
// @Summary      Standard slots for a provider on a day
// @Tags         providers
// @Produce      json
// @Param        id    path      int     true  "Provider id"
// @Param        date  query     string  true  "YYYY-MM-DD"
// @Success      200   {object}  envelope{data=availabilityResponse}
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/users/providers/{id}/availability [get]
func (h *AppointmentHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var q availabilityQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	slots, err := h.service.ProviderAvailability(c.Request().Context(), id, q.Date)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAvailabilityResponse(id, q.Date, slots))
}
