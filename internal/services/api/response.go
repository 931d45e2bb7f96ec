package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/NordCoder/tifi/internal/domain/user"
	"github.com/NordCoder/tifi/internal/services/auth"
	"github.com/NordCoder/tifi/internal/services/ledger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type envelope struct {
	Status     bool         `json:"status"`
	StatusCode int          `json:"status_code"`
	Message    string       `json:"message"`
	Data       any          `json:"data,omitempty"`
	Errors     []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func success(c *gin.Context, code int, msg string, data any) {
	c.JSON(code, envelope{Status: true, StatusCode: code, Message: msg, Data: data})
}

func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, envelope{Status: false, StatusCode: code, Message: msg})
}

const msgInvalidInput = "Invalid input"

var tagNameOnce sync.Once

// useJSONFieldNames makes validation errors report the json name of a field.
func useJSONFieldNames() {
	tagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// invalidInput answers 422 with one entry per failed field when err is a validator error.
func invalidInput(c *gin.Context, loc string, err error) {
	var errs []fieldError
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			errs = append(errs, fieldError{
				Loc:  []string{loc, fe.Field()},
				Msg:  "failed on the '" + fe.Tag() + "' rule",
				Type: "value_error." + fe.Tag(),
			})
		}
	} else if err != nil {
		errs = append(errs, fieldError{Loc: []string{loc}, Msg: err.Error(), Type: "value_error"})
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, envelope{
		Status:     false,
		StatusCode: http.StatusUnprocessableEntity,
		Message:    msgInvalidInput,
		Errors:     errs,
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, notification.ErrNotFound):
		return http.StatusNotFound, "Notification not found"
	case errors.Is(err, notification.ErrForbidden):
		return http.StatusForbidden, "You do not have access to this notification"
	case errors.Is(err, notification.ErrUnknownReceiver):
		return http.StatusUnprocessableEntity, "Receiver does not exist"
	case errors.Is(err, notification.ErrInvalidStatus),
		errors.Is(err, notification.ErrInvalidType),
		errors.Is(err, ledger.ErrEmptyTitle),
		errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusUnprocessableEntity, msgInvalidInput
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, auth.ErrInactiveUser):
		return http.StatusForbidden, "User is not active"
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be at least 8 characters"
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, "User with this email already exists"
	case errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
}

// writeError maps a domain error to the failure envelope and keeps it on the
// context so the access log can report it.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	code, msg := statusFor(err)
	if code == http.StatusUnprocessableEntity && msg == msgInvalidInput {
		invalidInput(c, "body", err)
		return
	}
	fail(c, code, msg)
}
