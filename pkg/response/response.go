// Package response renders job-pipeline results as HTTP responses. The
// free functions are a thin default; Factory exists so a consuming service
// can swap the transport framework without touching core job logic.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta contains metadata for the response
type Meta struct {
	Total     int64  `json:"total,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// AsyncJobIDHeader is the response header carrying the submitted job's id,
// per the external HTTP surface.
const AsyncJobIDHeader = "Async-Job-Id"

// Factory renders job pipeline outcomes as HTTP responses. It is the one
// abstract collaborator between the core and any specific web framework;
// GinFactory is the only concrete implementation wired in this repository.
type Factory interface {
	Accepted(c *gin.Context, jobID string)
	OK(c *gin.Context, data interface{})
	Error(c *gin.Context, err error)
	ValidationError(c *gin.Context, details map[string]string)
}

type GinFactory struct{}

func NewGinFactory() *GinFactory { return &GinFactory{} }

// Accepted writes a 202 with the Async-Job-Id header, per the submission
// contract: the caller polls the job resource using this id.
func (GinFactory) Accepted(c *gin.Context, jobID string) {
	c.Header(AsyncJobIDHeader, jobID)
	c.JSON(http.StatusAccepted, APIResponse{
		Success:   true,
		Data:      gin.H{"id": jobID},
		Timestamp: time.Now().UTC(),
	})
}

func (GinFactory) OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (GinFactory) Error(c *gin.Context, err error) {
	Error(c, err)
}

func (GinFactory) ValidationError(c *gin.Context, details map[string]string) {
	ValidationError(c, details)
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// SuccessWithMessage sends a successful response with message
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Created sends a created response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Accepted sends a 202 Accepted response carrying the Async-Job-Id header.
func Accepted(c *gin.Context, jobID string) {
	NewGinFactory().Accepted(c, jobID)
}

// Error sends an error response, mapping *apperrors.Error to its declared
// HTTP status and falling back to 500 for anything else.
func Error(c *gin.Context, err error) {
	var statusCode int
	var errorInfo *ErrorInfo

	if appErr, ok := apperrors.As(err); ok {
		statusCode = appErr.HTTPStatusCode()
		errorInfo = &ErrorInfo{
			Code:    string(appErr.Code),
			Message: appErr.Message,
		}
	} else {
		statusCode = http.StatusInternalServerError
		errorInfo = &ErrorInfo{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		}
	}

	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     errorInfo,
		Timestamp: time.Now().UTC(),
	})
}

// ValidationError sends a validation error response
func ValidationError(c *gin.Context, validationErrors map[string]string) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(apperrors.CodeInvalidJob),
			Message: "validation failed",
			Details: validationErrors,
		},
		Timestamp: time.Now().UTC(),
	})
}
