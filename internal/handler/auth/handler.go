package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harunoki/clinic-api/internal/handler"
	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/service/auth"
)

type Handler struct {
	service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	a := r.Group("/auth")
	{
		a.POST("/login", h.Login)
		a.POST("/staff/login", h.StaffLogin)
	}
}

// Login exchanges an already-verified social-login identity for a
// session token. Unregistered users are told to register first.
func (h *Handler) Login(c *gin.Context) {
	var req model.ProviderLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	token, err := h.service.LoginWithProvider(c.Request.Context(), req.ProviderUserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": token})
}

func (h *Handler) StaffLogin(c *gin.Context) {
	var req model.StaffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	token, err := h.service.StaffLogin(c.Request.Context(), req.CardNumber, req.Password)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": token})
}
