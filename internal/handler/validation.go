package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/harunoki/clinic-api/internal/model"
)

// RegisterValidations installs the custom binding validators used by
// the request structs.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("visitstatus", func(fl validator.FieldLevel) bool {
		return model.VisitStatus(fl.Field().String()).Valid()
	})
}
