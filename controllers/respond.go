package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"taskassign/middleware"
	"taskassign/services"
)

// respondError maps engine errors onto HTTP statuses. Anything that is not a
// typed caller error is logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		log.Printf("[api] request_id=%s %s %s: %v",
			middleware.RequestIDFrom(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidAssignment), errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": svcErr.Msg})
}

// respondBindError reports the first failing field of a request body without
// leaking validator internals.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": fieldMessage(verrs[0])})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "taskpriority":
		return "priority must be one of High, Medium, Low"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return 0, false
	}
	return uint(id), true
}
