package store

import (
	"context"
	"errors"
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrVersionConflict reports a compare-and-set update that lost a race.
	// Callers should re-read inside a fresh transaction and retry.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and a transaction primitive that every read-modify-write
// on membership state must go through: the owner-count invariant is only
// sound when the check and the write commit atomically.
type Store interface {
	Clients() Clients
	Members() Members

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// GetClientByID returns a client by id.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClientsByUser returns clients the user holds an accepted
	// membership in, newest first.
	ListClientsByUser(ctx context.Context, userID string) ([]domain.Client, error)

	// CreateClient inserts a new client (id is provided by app via ULID).
	CreateClient(ctx context.Context, c domain.Client) error

	// UpdateClient mutates name/contact_email/status and bumps updated_at.
	UpdateClient(ctx context.Context, c domain.Client) error
}

type Members interface {
	// GetMemberByID returns a membership row by its id.
	GetMemberByID(ctx context.Context, id string) (domain.Member, error)

	// GetMemberByUser returns the membership for a (client, user) pair.
	GetMemberByUser(ctx context.Context, clientID, userID string) (domain.Member, error)

	// GetMemberByEmail returns the membership for a (client, email) pair,
	// matching email case-insensitively.
	GetMemberByEmail(ctx context.Context, clientID, email string) (domain.Member, error)

	// ListMembersByClient returns all non-removed memberships for a client,
	// oldest first.
	ListMembersByClient(ctx context.Context, clientID string) ([]domain.Member, error)

	// CreateMember inserts a membership. Returns ErrAlreadyExists when the
	// (client_id, user_id) or (client_id, email) uniqueness constraint is
	// violated; this is the storage-level guarantee that closes the
	// concurrent-invite race.
	CreateMember(ctx context.Context, m domain.Member) error

	// UpdateMember writes the row only when the stored version still equals
	// expectedVersion, then bumps version and updated_at. Returns
	// ErrVersionConflict when the row changed underneath the caller.
	UpdateMember(ctx context.Context, m domain.Member, expectedVersion int64) (domain.Member, error)

	// DeleteMember removes the row.
	DeleteMember(ctx context.Context, id string) error

	// CountActiveOwners returns the number of accepted owner rows for the
	// client. Must be executed inside the same transaction as the write it
	// guards.
	CountActiveOwners(ctx context.Context, clientID string) (int, error)

	// DeleteStalePendingInvites removes pending invitations whose invited_at
	// is older than the cutoff, reporting how many were removed.
	// Housekeeping only.
	DeleteStalePendingInvites(ctx context.Context, cutoff time.Time) (int64, error)
}
