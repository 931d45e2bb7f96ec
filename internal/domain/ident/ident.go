package ident

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a time-ordered identifier: a UUIDv7 as 32 lowercase hex chars.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return hex.EncodeToString(id[:])
}
