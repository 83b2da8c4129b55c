package handler

import (
	"context"
	"errors"
	"net/http"

	"imgedit-backend/internal/service"
	"imgedit-backend/internal/storage"
	"imgedit-backend/internal/transform"
	"imgedit-backend/internal/worker"
	"imgedit-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest is reported (and logged) when the client went
// away before its job finished.
const statusClientClosedRequest = 499

func statusFor(err error) int {
	switch {
	case errors.Is(err, transform.ErrInvalidImage),
		errors.Is(err, service.ErrNoImageProvided),
		errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrSessionNotFound),
		errors.Is(err, storage.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, worker.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	// Invalid plans, unsupported modes and file failures.
	return http.StatusInternalServerError
}

func detail(status int, err error) string {
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		return "Image not found"
	case errors.Is(err, storage.ErrImageNotFound):
		return "Image not found"
	case errors.Is(err, transform.ErrInvalidImage):
		return "Invalid image"
	case errors.Is(err, service.ErrNoImageProvided):
		return "No image provided"
	}
	if status == http.StatusInternalServerError {
		return "Error processing image: " + err.Error()
	}
	return err.Error()
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	fields := map[string]interface{}{
		"path":   c.Request.URL.Path,
		"status": status,
	}
	if status >= http.StatusInternalServerError {
		logger.WithFields(fields).Errorf("request failed: %v", err)
	} else {
		logger.WithFields(fields).Warnf("request rejected: %v", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail(status, err)})
}
