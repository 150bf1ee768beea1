package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Gate names the server consults before accepting pool creations.
const (
	// GateCreationEnabled globally switches the creation endpoints.
	GateCreationEnabled = "creation.enabled"
	// GateHookedTokens allows pools over transfer-hooked Token-2022 mints.
	GateHookedTokens = "creation.hooked_tokens"
)

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
