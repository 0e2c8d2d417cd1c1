package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/cloudstorage/pkg/resource"
	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "invalid input", err: fmt.Errorf("%w: name", resource.ErrInvalidInput), expected: http.StatusBadRequest},
		{name: "missing resource", err: resource.ErrNotFound, expected: http.StatusNotFound},
		{name: "url unavailable", err: resource.ErrURLUnavailable, expected: http.StatusNotFound},
		{name: "delete failed", err: fmt.Errorf("%w: %v", storage.ErrDeleteFailed, storage.ErrProviderFailed), expected: http.StatusBadGateway},
		{name: "resolve failed", err: fmt.Errorf("%w: throttled", storage.ErrResolveFailed), expected: http.StatusBadGateway},
		{name: "bare provider failure", err: storage.ErrProviderFailed, expected: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.expected, status)
		})
	}
}
