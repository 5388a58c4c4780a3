package domain

import (
	"fmt"
	"time"
)

// ClientStatus is the soft-deletion state of a client. Clients are never
// hard-deleted while memberships reference them.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
)

// Valid reports whether s is a known client status.
func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientInactive:
		return true
	}
	return false
}

// ParseClientStatus validates a wire-level status string.
func ParseClientStatus(s string) (ClientStatus, error) {
	switch ClientStatus(s) {
	case ClientActive, ClientInactive:
		return ClientStatus(s), nil
	}
	return "", fmt.Errorf("unknown client status %q", s)
}

// Client is a tenant boundary. All memberships and permissions are scoped to
// exactly one client.
type Client struct {
	ID           string
	Name         string
	ContactEmail string
	Status       ClientStatus
	CreatedBy    string // user id of the creator, seeded as accepted owner
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
