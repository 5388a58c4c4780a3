package http

import (
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/pkg/membersdk"
)

func toWireMember(m domain.Member) membersdk.Member {
	return membersdk.Member{
		ID:          m.ID,
		ClientID:    m.ClientID,
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        string(m.Role),
		State:       string(m.State()),
		InvitedBy:   m.InvitedBy,
		InvitedAt:   unixOrZero(m.InvitedAt),
		AcceptedAt:  unixOrZero(m.AcceptedAt),
		CreatedAt:   m.CreatedAt.Unix(),
		UpdatedAt:   m.UpdatedAt.Unix(),
	}
}

func toWireMembers(members []domain.Member) []membersdk.Member {
	out := make([]membersdk.Member, 0, len(members))
	for _, m := range members {
		out = append(out, toWireMember(m))
	}
	return out
}

func toWireClient(c domain.Client) membersdk.Client {
	return membersdk.Client{
		ID:           c.ID,
		Name:         c.Name,
		ContactEmail: c.ContactEmail,
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt.Unix(),
		UpdatedAt:    c.UpdatedAt.Unix(),
	}
}

func toWireClients(clients []domain.Client) []membersdk.Client {
	out := make([]membersdk.Client, 0, len(clients))
	for _, c := range clients {
		out = append(out, toWireClient(c))
	}
	return out
}

func toWirePermissions(p domain.Permissions) membersdk.Permissions {
	return membersdk.Permissions{
		CanView:   p.CanView,
		CanWrite:  p.CanWrite,
		CanManage: p.CanManage,
		IsOwner:   p.IsOwner,
	}
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}
