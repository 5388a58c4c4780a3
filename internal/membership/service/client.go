package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/clearcomply/membership/pkg/idx"
	"github.com/clearcomply/membership/pkg/slogx"
)

// ClientService manages the client accounts memberships hang off. Read
// paths check access through the authorization guard; mutations run their
// checks inside the write transaction instead.
type ClientService struct {
	Store     store.Store
	Authorize *AuthorizeService
}

// CreateClient provisions a new client and seeds the creator as its first
// accepted owner in the same transaction, so no client ever exists without
// one.
func (s *ClientService) CreateClient(
	ctx context.Context,
	name string,
	contactEmail string,
	creatorID string,
	creatorEmail string,
) (domain.Client, domain.Member, error) {
	log := slogx.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" || creatorID == "" {
		return domain.Client{}, domain.Member{}, ErrInvalidRequest
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:           idx.New().String(),
		Name:         name,
		ContactEmail: strings.ToLower(strings.TrimSpace(contactEmail)),
		Status:       domain.ClientActive,
		CreatedBy:    creatorID,
	}
	// The creator never went through an invitation, so the invite fields
	// stay empty; only invite-path members carry invited_by/invited_at.
	owner := domain.Member{
		ID:         idx.New().String(),
		ClientID:   client.ID,
		UserID:     creatorID,
		Email:      strings.ToLower(strings.TrimSpace(creatorEmail)),
		Role:       domain.RoleOwner,
		AcceptedAt: &now,
		Version:    1,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Clients().CreateClient(ctx, client); err != nil {
			return err
		}
		return tx.Members().CreateMember(ctx, owner)
	})
	if err != nil {
		return domain.Client{}, domain.Member{}, normalizeErr(err)
	}

	// Re-read so the caller sees store-assigned timestamps.
	client, err = s.Store.Clients().GetClientByID(ctx, client.ID)
	if err != nil {
		return domain.Client{}, domain.Member{}, normalizeErr(err)
	}
	owner, err = s.Store.Members().GetMemberByID(ctx, owner.ID)
	if err != nil {
		return domain.Client{}, domain.Member{}, normalizeErr(err)
	}

	log.Info("client created",
		slog.String("client_id", client.ID),
		slog.String("created_by", creatorID),
	)
	return client, owner, nil
}

// GetClient returns a client's details to one of its active members.
func (s *ClientService) GetClient(ctx context.Context, clientID, userID string) (domain.Client, error) {
	if clientID == "" || userID == "" {
		return domain.Client{}, ErrInvalidRequest
	}

	if _, err := s.Authorize.Authorize(ctx, clientID, userID, domain.RoleViewer); err != nil {
		return domain.Client{}, err
	}

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, normalizeErr(err)
	}
	return client, nil
}

// ListClients returns every client the user holds an accepted membership in.
func (s *ClientService) ListClients(ctx context.Context, userID string) ([]domain.Client, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}

	clients, err := s.Store.Clients().ListClientsByUser(ctx, userID)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return clients, nil
}

// UpdateClient changes a client's name, contact email or status. Admin or
// above.
func (s *ClientService) UpdateClient(
	ctx context.Context,
	clientID string,
	actorID string,
	name *string,
	contactEmail *string,
	status *domain.ClientStatus,
) (domain.Client, error) {
	log := slogx.FromContext(ctx)

	if clientID == "" || actorID == "" {
		return domain.Client{}, ErrInvalidRequest
	}
	if name == nil && contactEmail == nil && status == nil {
		return domain.Client{}, ErrInvalidRequest
	}

	var client domain.Client
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		actor, err := activeMember(ctx, tx, clientID, actorID)
		if err != nil {
			return err
		}
		if !actor.Role.Meets(domain.RoleAdmin) {
			return ErrInsufficientRole
		}

		client, err = tx.Clients().GetClientByID(ctx, clientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}

		if name != nil {
			trimmed := strings.TrimSpace(*name)
			if trimmed == "" {
				return ErrInvalidRequest
			}
			client.Name = trimmed
		}
		if contactEmail != nil {
			client.ContactEmail = strings.ToLower(strings.TrimSpace(*contactEmail))
		}
		if status != nil {
			if !status.Valid() {
				return ErrInvalidRequest
			}
			client.Status = *status
		}

		return tx.Clients().UpdateClient(ctx, client)
	})
	if err != nil {
		return domain.Client{}, normalizeErr(err)
	}

	log.Info("client updated",
		slog.String("client_id", clientID),
		slog.String("actor_id", actorID),
	)
	return client, nil
}
