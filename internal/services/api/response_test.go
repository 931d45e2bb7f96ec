package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/NordCoder/tifi/internal/domain/user"
	"github.com/NordCoder/tifi/internal/services/auth"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{notification.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("mark read: %w", notification.ErrForbidden), http.StatusForbidden},
		{notification.ErrUnknownReceiver, http.StatusUnprocessableEntity},
		{notification.ErrInvalidStatus, http.StatusUnprocessableEntity},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{auth.ErrWeakPassword, http.StatusBadRequest},
		{user.ErrEmailTaken, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, msg := statusFor(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.NotEmpty(t, msg)
	}

	_, msg := statusFor(errors.New("pq: relation missing"))
	assert.Equal(t, "An unexpected error occurred", msg)
}
