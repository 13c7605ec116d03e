package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	h := job.NewHandlerFunc("email", func(ctx job.HandlerContext) ([]byte, error) {
		return nil, nil
	})

	r.Register(h)

	resolved, err := r.Resolve("email")
	require.NoError(t, err)
	assert.Equal(t, "email", resolved.Name())
}

func TestResolveUnregisteredReturnsHandlerNotRegistered(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("missing")
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeHandlerNotRegistered, appErr.Code)
}

func TestRegisterSameNameReplacesHandler(t *testing.T) {
	r := NewRegistry()
	r.Register(job.NewHandlerFunc("email", func(ctx job.HandlerContext) ([]byte, error) {
		return []byte("v1"), nil
	}))
	r.Register(job.NewHandlerFunc("email", func(ctx job.HandlerContext) ([]byte, error) {
		return []byte("v2"), nil
	}))

	resolved, err := r.Resolve("email")
	require.NoError(t, err)

	result, err := resolved.Execute(job.HandlerContext{})
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), result)
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	r.Register(job.NewHandlerFunc("email", func(ctx job.HandlerContext) ([]byte, error) { return nil, nil }))
	r.Register(job.NewHandlerFunc("sms", func(ctx job.HandlerContext) ([]byte, error) { return nil, nil }))

	names := r.Names()
	assert.ElementsMatch(t, []string{"email", "sms"}, names)
}
