// Package apperrors defines the stable error taxonomy returned across the
// job pipeline's operation boundary (manager, store, handler registry).
package apperrors

import (
	"fmt"
	"net/http"
)

// Code is one of the stable, serializable error identifiers the job
// pipeline returns. Callers across a process boundary can safely switch on
// these strings; they do not change between releases.
type Code string

const (
	CodeInvalidJob             Code = "INVALID_JOB"
	CodeInvalidJobID           Code = "INVALID_JOB_ID"
	CodeJobNotFound            Code = "JOB_NOT_FOUND"
	CodeJobExists              Code = "JOB_EXISTS"
	CodeJobNotClaimed          Code = "JOB_NOT_CLAIMED"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeHandlerNotRegistered   Code = "HANDLER_NOT_REGISTERED"
	CodeDeserializationError   Code = "DESERIALIZATION_ERROR"
	CodeJobTimeout             Code = "JOB_TIMEOUT"
	CodeHandlerExecutionError  Code = "HANDLER_EXECUTION_ERROR"
	CodeStoreError             Code = "STORE_ERROR"
	CodeSubmissionError        Code = "SUBMISSION_ERROR"
)

var httpStatus = map[Code]int{
	CodeInvalidJob:             http.StatusBadRequest,
	CodeInvalidJobID:           http.StatusBadRequest,
	CodeJobNotFound:            http.StatusNotFound,
	CodeJobExists:              http.StatusConflict,
	CodeJobNotClaimed:          http.StatusConflict,
	CodeInvalidStateTransition: http.StatusConflict,
	CodeHandlerNotRegistered:   http.StatusUnprocessableEntity,
	CodeDeserializationError:   http.StatusUnprocessableEntity,
	CodeJobTimeout:             http.StatusGatewayTimeout,
	CodeHandlerExecutionError:  http.StatusInternalServerError,
	CodeStoreError:             http.StatusInternalServerError,
	CodeSubmissionError:        http.StatusInternalServerError,
}

// Error is the typed error returned across the core's operation boundary.
// It carries a stable Code, a human Message, and an optional wrapped Cause.
type Error struct {
	Code    Code  `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode maps the error's Code to the HTTP status the transport
// layer should respond with.
func (e *Error) HTTPStatusCode() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// As reports whether err is an *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

func InvalidJob(message string) *Error           { return New(CodeInvalidJob, message) }
func InvalidJobID(message string) *Error         { return New(CodeInvalidJobID, message) }
func JobNotFound(message string) *Error          { return New(CodeJobNotFound, message) }
func JobExists(message string) *Error            { return New(CodeJobExists, message) }
func JobNotClaimed(message string) *Error        { return New(CodeJobNotClaimed, message) }
func InvalidStateTransition(message string) *Error {
	return New(CodeInvalidStateTransition, message)
}
func HandlerNotRegistered(message string) *Error { return New(CodeHandlerNotRegistered, message) }
func DeserializationError(message string, cause error) *Error {
	return Wrap(CodeDeserializationError, message, cause)
}
func JobTimeout(message string) *Error    { return New(CodeJobTimeout, message) }
func HandlerExecutionError(message string, cause error) *Error {
	return Wrap(CodeHandlerExecutionError, message, cause)
}
func StoreError(message string, cause error) *Error {
	return Wrap(CodeStoreError, message, cause)
}
func SubmissionError(message string, cause error) *Error {
	return Wrap(CodeSubmissionError, message, cause)
}
