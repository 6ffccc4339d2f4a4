package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/harunoki/clinic-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps an error to its HTTP status and writes the
// standard error envelope.
func RespondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	c.Error(err)
	c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
}
