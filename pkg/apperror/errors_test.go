package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("post: %w", ErrNotFound), http.StatusNotFound},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("only the author may edit: %w", ErrPermissionDenied), http.StatusForbidden},
		{ErrInvalidReference, http.StatusBadRequest},
		{ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("cannot follow yourself: %w", ErrInvalidOperation), http.StatusUnprocessableEntity},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrInsufficientStock, http.StatusConflict},
		{ErrRateLimitExceeded, http.StatusTooManyRequests},
		{New(http.StatusTeapot, "teapot", nil), http.StatusTeapot},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, MapErrorToStatus(tc.err), tc.err.Error())
	}
}
