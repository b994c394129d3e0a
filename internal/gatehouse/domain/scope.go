package domain

import (
	"time"

	"github.com/ferryhill/gatehouse/pkg/idx"
)

// Scope is an API resource scope clients can be granted.
type Scope struct {
	ID          idx.ID
	Name        string
	DisplayName string
	Description string

	// Default scopes are granted when a token request names no scope.
	Default bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScopeUpdate carries the mutable scope fields for admin updates. Nil
// pointers leave the current value untouched.
type ScopeUpdate struct {
	DisplayName *string
	Description *string
	Default     *bool
}
