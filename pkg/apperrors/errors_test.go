package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFormatting(t *testing.T) {
	plain := New(CodeJobNotFound, "job missing")
	assert.Equal(t, "JOB_NOT_FOUND: job missing", plain.Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(CodeStoreError, "store failed", cause)
	assert.Contains(t, wrapped.Error(), "store failed")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(CodeStoreError, "failed", cause)
	assert.Equal(t, cause, wrapped.Unwrap())

	plain := New(CodeJobNotFound, "missing")
	assert.Nil(t, plain.Unwrap())
}

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidJob:             http.StatusBadRequest,
		CodeInvalidJobID:           http.StatusBadRequest,
		CodeJobNotFound:            http.StatusNotFound,
		CodeJobExists:              http.StatusConflict,
		CodeJobNotClaimed:          http.StatusConflict,
		CodeInvalidStateTransition: http.StatusConflict,
		CodeHandlerNotRegistered:   http.StatusUnprocessableEntity,
		CodeDeserializationError:   http.StatusUnprocessableEntity,
		CodeJobTimeout:             http.StatusGatewayTimeout,
		CodeStoreError:             http.StatusInternalServerError,
		CodeSubmissionError:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		err := New(code, "x")
		assert.Equal(t, want, err.HTTPStatusCode(), "code %s", code)
	}
}

func TestHTTPStatusCodeUnknownDefaultsTo500(t *testing.T) {
	err := New(Code("SOMETHING_NEW"), "x")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatusCode())
}

func TestAs(t *testing.T) {
	appErr, ok := As(JobNotFound("missing"))
	require.True(t, ok)
	assert.Equal(t, CodeJobNotFound, appErr.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestConstructorHelpers(t *testing.T) {
	assert.Equal(t, CodeInvalidJob, InvalidJob("x").Code)
	assert.Equal(t, CodeInvalidJobID, InvalidJobID("x").Code)
	assert.Equal(t, CodeJobNotFound, JobNotFound("x").Code)
	assert.Equal(t, CodeJobExists, JobExists("x").Code)
	assert.Equal(t, CodeJobNotClaimed, JobNotClaimed("x").Code)
	assert.Equal(t, CodeInvalidStateTransition, InvalidStateTransition("x").Code)
	assert.Equal(t, CodeHandlerNotRegistered, HandlerNotRegistered("x").Code)
	assert.Equal(t, CodeJobTimeout, JobTimeout("x").Code)

	derr := DeserializationError("x", errors.New("cause"))
	assert.Equal(t, CodeDeserializationError, derr.Code)
	assert.Equal(t, "cause", derr.Cause.Error())

	serr := StoreError("x", errors.New("cause"))
	assert.Equal(t, CodeStoreError, serr.Code)

	suberr := SubmissionError("x", errors.New("cause"))
	assert.Equal(t, CodeSubmissionError, suberr.Code)
}
