package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"miningpad/pkg/apperr"
)

// Envelope is the uniform response shape of every endpoint
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// respondServiceError maps service-layer sentinel errors to HTTP statuses.
// Anything unrecognized is a 500 with a generic message.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrUserNotFound),
		errors.Is(err, apperr.ErrWalletNotFound),
		errors.Is(err, apperr.ErrTaskNotFound),
		errors.Is(err, apperr.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrInvalidAmount),
		errors.Is(err, apperr.ErrInsufficientFunds),
		errors.Is(err, apperr.ErrSelfTransfer),
		errors.Is(err, apperr.ErrSameBucket),
		errors.Is(err, apperr.ErrNotCompleted),
		errors.Is(err, apperr.ErrAlreadyClaimed),
		errors.Is(err, apperr.ErrMiningActive),
		errors.Is(err, apperr.ErrEmailTaken),
		errors.Is(err, apperr.ErrUsernameTaken):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrInvalidCredentials),
		errors.Is(err, apperr.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}
