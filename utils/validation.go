package utils

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"taskassign/constants"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules used by request DTOs.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
			_ = v.RegisterValidation("taskpriority", validPriority)
		}
	})
}

func validPriority(fl validator.FieldLevel) bool {
	return constants.Priority(fl.Field().String()).Valid()
}

// jsonFieldName makes validation errors report the request's field names.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
