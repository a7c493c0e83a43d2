package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/princinho/tubebackend/apperrors"
	"github.com/princinho/tubebackend/dto"
)

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, dto.ApiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// handle adapts an error returning handler to gin and renders any error as
// the failure envelope.
func handle(logger *zap.Logger, fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			renderError(c, logger, err)
		}
	}
}

func renderError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := apperrors.From(err)
	status := appErr.Kind.Status()

	if appErr.Kind == apperrors.KindInternal {
		_ = c.Error(err)
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("message", appErr.Message),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, dto.NewApiError(status, appErr.Message, appErr.Details...))
}

// bindError turns a gin binding failure into a validation error with one
// entry per offending field.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details := make([]string, 0, len(ve))
		for _, fe := range ve {
			details = append(details, fieldMessage(fe))
		}
		return apperrors.Validation("Invalid request body", details...)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Validation("Request body too large")
	}
	return apperrors.Validation("Invalid request body", err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// Recovery renders panics as the failure envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Error("panic recovered", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewApiError(http.StatusInternalServerError, "Internal server error"))
	})
}

// NotFound answers unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewApiError(http.StatusNotFound, "Route not found"))
	}
}

// Health is the liveness probe.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{"status": "ok"}, "pong")
	}
}
