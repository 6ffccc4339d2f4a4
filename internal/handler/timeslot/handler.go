package timeslot

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/harunoki/clinic-api/internal/handler"
	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/service/timeslot"
)

type Handler struct {
	service *timeslot.Service
}

func NewHandler(service *timeslot.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the slot-management endpoints on a
// staff-scoped group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	slots := r.Group("/timeslots")
	{
		slots.GET("", h.ListTimeSlots)
		slots.POST("", h.GenerateTimeSlots)
		slots.PATCH("/:id", h.UpdateTimeSlot)
		slots.POST("/combine", h.CombineSlots)
		slots.POST("/split", h.SplitSlot)
	}
	r.GET("/schedule/default", h.GetDefaultSchedule)
}

// ListTimeSlots returns every slot between start_date and end_date
// (inclusive), with its reservations attached.
func (h *Handler) ListTimeSlots(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if startDate == "" || endDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "start_date and end_date are required"})
		return
	}

	slots, err := h.service.ListRange(c.Request.Context(), startDate, endDate)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slots})
}

func (h *Handler) GenerateTimeSlots(c *gin.Context) {
	var req model.GenerateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req.Date, req.IsOpen)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": result})
}

func (h *Handler) UpdateTimeSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid time slot ID"})
		return
	}

	var req model.UpdateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	slot, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slot})
}

// CombineSlots merges a 15-minute slot with the one that starts when it
// ends, returning the refreshed day.
func (h *Handler) CombineSlots(c *gin.Context) {
	var req model.CombineSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	slots, err := h.service.Combine(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slots})
}

// SplitSlot divides a 30-minute slot back into two follow-up slots.
func (h *Handler) SplitSlot(c *gin.Context) {
	var req model.SplitSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	slots, err := h.service.Split(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slots})
}

func (h *Handler) GetDefaultSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.service.DefaultSchedule()})
}
