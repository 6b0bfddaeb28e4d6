package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

// UserHandler serves the user directory, the provider's patient view and the
// admin dashboard.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type providerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type patientSummaryResponse struct {
	Patient      userResponse          `json:"patient"`
	Appointments []appointmentResponse `json:"appointments"`
}

type statsResponse struct {
	TotalUsers   int64  `json:"totalUsers"`
	Providers    int64  `json:"providers"`
	Patients     int64  `json:"patients"`
	Appointments int64  `json:"appointments"`
	SystemStatus string `json:"systemStatus"`
}

// ListProviders handles GET /api/users/providers.
//
// @Summary      Provider directory
// @Tags         providers
// @Produce      json
// @Success      200  {object}  envelope{data=[]providerResponse}
// @Router       /api/users/providers [get]
func (h *UserHandler) ListProviders(c echo.Context) error {
	providers, err := h.service.ListProviders(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		out = append(out, providerResponse{ID: p.ID, Name: p.Name, Email: p.Email})
	}
	return respondList(c, http.StatusOK, out)
}

// ListUsers handles GET /api/users.
//
// @Summary      All users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope{data=[]userResponse}
// @Failure      403  {object}  errorResponse
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	users, err := h.service.ListUsers(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, toUserResponses(users))
}

// GetUser handles GET /api/users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  envelope{data=userResponse}
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.service.GetUser(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(user))
}

// PatientSummary handles GET /api/provider/patients/:id.
//
// @Summary      A patient and their appointments
// @Tags         providers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Patient id"
// @Success      200  {object}  envelope{data=patientSummaryResponse}
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/provider/patients/{id} [get]
func (h *UserHandler) PatientSummary(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	summary, err := h.service.PatientSummary(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, patientSummaryResponse{
		Patient:      toUserResponse(summary.Patient),
		Appointments: toAppointmentResponses(summary.Appointments),
	})
}

// Stats handles GET /api/admin/stats.
//
// @Summary      System statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope{data=statsResponse}
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/stats [get]
func (h *UserHandler) Stats(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, statsResponse{
		TotalUsers:   stats.TotalUsers,
		Providers:    stats.Providers,
		Patients:     stats.Patients,
		Appointments: stats.Appointments,
		SystemStatus: stats.SystemStatus,
	})
}

// RecentUsers handles GET /api/admin/users.
//
// @Summary      Most recently registered users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope{data=[]userResponse}
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/users [get]
func (h *UserHandler) RecentUsers(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	users, err := h.service.RecentUsers(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponses(users))
}
