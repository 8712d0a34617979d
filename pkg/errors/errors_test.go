package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		unavailable bool
		conflict    bool
	}{
		{"transport failure", 0, true, false},
		{"rate limited", http.StatusTooManyRequests, true, false},
		{"server error", http.StatusInternalServerError, true, false},
		{"bad gateway", http.StatusBadGateway, true, false},
		{"not found", http.StatusNotFound, false, true},
		{"conflict", http.StatusConflict, false, true},
		{"gone", http.StatusGone, false, true},
		{"bad request", http.StatusBadRequest, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUpstreamError("emby", "/Items", tt.statusCode, "boom")
			assert.Equal(t, tt.unavailable, IsUnavailable(err))
			assert.Equal(t, tt.conflict, IsConflict(err))
		})
	}
}

func TestUpstreamErrorWrapping(t *testing.T) {
	cause := New("connection refused")
	err := WrapUpstream("romm", "/api/roms", cause)

	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "romm")
	assert.Contains(t, err.Error(), "/api/roms")
}

func TestProtocolError(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := WrapProtocol("romm", "/api/roms", cause)

	assert.True(t, IsProtocol(err))
	assert.False(t, IsUnavailable(err))
	assert.ErrorIs(t, err, cause)
}

func TestStoreError(t *testing.T) {
	err := WrapStore("upsert", New("disk full"))

	assert.True(t, IsStore(err))
	assert.Contains(t, err.Error(), "upsert")

	assert.Nil(t, WrapStore("load", nil))
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "external_id", Message: "must not be empty"}

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "external_id")
}
