package reservation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/harunoki/clinic-api/internal/handler"
	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/service/availability"
	"github.com/harunoki/clinic-api/internal/service/reservation"
)

type Handler struct {
	service      *reservation.Service
	availability *availability.Service
}

func NewHandler(service *reservation.Service, availability *availability.Service) *Handler {
	return &Handler{service: service, availability: availability}
}

// RegisterPatientRoutes mounts the endpoints a logged-in patient uses:
// browsing availability, booking, and cancelling their own visits.
func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	res := r.Group("/reservations")
	{
		res.GET("", h.ListAvailableSlots)
		res.GET("/month", h.GetMonthAvailability)
		res.GET("/patient", h.ListMyReservations)
		res.POST("", h.CreateReservation)
		res.DELETE("", h.CancelReservation)
	}
}

// RegisterStaffRoutes mounts the desk-side endpoints: visit status
// management, QR check-in, and hard deletes.
func (h *Handler) RegisterStaffRoutes(r *gin.RouterGroup) {
	res := r.Group("/reservations")
	{
		res.PATCH("/:id", h.UpdateVisitStatus)
		res.POST("/:id/advance", h.AdvanceVisitStatus)
		res.POST("/:id/checkin", h.CheckIn)
		res.DELETE("/:id", h.DeleteReservation)
	}
}

// ListAvailableSlots returns the bookable slots of one day, filtered by
// visit type.
func (h *Handler) ListAvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "date is required"})
		return
	}
	isFirstVisit := c.Query("is_first_visit") == "true"

	slots, err := h.service.ListAvailable(c.Request.Context(), date, isFirstVisit)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slots})
}

// GetMonthAvailability returns a per-day indicator for the calendar
// month containing the given date.
func (h *Handler) GetMonthAvailability(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "date is required"})
		return
	}
	isFirstVisit := c.Query("is_first_visit") == "true"

	days, err := h.availability.Month(c.Request.Context(), date, isFirstVisit)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": days})
}

func (h *Handler) ListMyReservations(c *gin.Context) {
	patientID, ok := requesterID(c)
	if !ok {
		return
	}

	reservations, err := h.service.ListForPatient(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": reservations})
}

func (h *Handler) CreateReservation(c *gin.Context) {
	patientID, ok := requesterID(c)
	if !ok {
		return
	}

	var req model.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	res, err := h.service.Create(c.Request.Context(), patientID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": res})
}

// CancelReservation marks the requester's own reservation cancelled.
// Only the booking patient may cancel, and only up to 24 hours before
// the slot starts.
func (h *Handler) CancelReservation(c *gin.Context) {
	patientID, ok := requesterID(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid reservation ID"})
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "reservation cancelled"})
}

func (h *Handler) UpdateVisitStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid reservation ID"})
		return
	}

	var req model.UpdateVisitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	res, err := h.service.SetVisitStatus(c.Request.Context(), id, req.VisitStatus)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": res})
}

// AdvanceVisitStatus moves a reservation one step along the
// waiting -> checked-in -> completed cycle.
func (h *Handler) AdvanceVisitStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid reservation ID"})
		return
	}

	res, err := h.service.Advance(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": res})
}

// CheckIn is the QR-scan entry point. It only accepts reservations that
// are still waiting.
func (h *Handler) CheckIn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid reservation ID"})
		return
	}

	res, err := h.service.CheckIn(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": res})
}

func (h *Handler) DeleteReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid reservation ID"})
		return
	}

	if err := h.service.ForceDelete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "reservation deleted"})
}

func requesterID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("patientID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid patient ID"})
		c.Abort()
		return uuid.Nil, false
	}
	return id, true
}
