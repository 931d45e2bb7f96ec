// Package auth holds the signed token formats shared by the auth flows and the HTTP layer.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenInvalid = errors.New("invalid token")

// Purpose scopes a token to one flow so a magic link cannot be replayed as a session.
type Purpose string

const (
	PurposeAccess    Purpose = "access"
	PurposeMagicLink Purpose = "magic_link"
	PurposeReset     Purpose = "reset_password"
)

type Claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"pur"`
	// Fingerprint binds a reset token to the password hash it was issued against.
	Fingerprint string `json:"pfp,omitempty"`
}
