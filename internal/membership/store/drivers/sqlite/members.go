package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
	"github.com/clearcomply/membership/internal/membership/store"
)

type membersRepo struct {
	db dbtx
}

const memberColumns = `id, client_id, user_id, email, display_name, role,
	invited_by, invited_at, accepted_at, version, created_at, updated_at`

func (r *membersRepo) GetMemberByID(ctx context.Context, id string) (domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	return scanMember(row)
}

func (r *membersRepo) GetMemberByUser(ctx context.Context, clientID, userID string) (domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE client_id = ? AND user_id = ?`,
		clientID, userID)
	return scanMember(row)
}

func (r *membersRepo) GetMemberByEmail(ctx context.Context, clientID, email string) (domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE client_id = ? AND lower(email) = lower(?)`,
		clientID, email)
	return scanMember(row)
}

func (r *membersRepo) ListMembersByClient(ctx context.Context, clientID string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE client_id = ? ORDER BY created_at, id`,
		clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membersRepo) CreateMember(ctx context.Context, m domain.Member) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, client_id, user_id, email, display_name, role,
		                      invited_by, invited_at, accepted_at, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		m.ID, m.ClientID, mapStringNull(m.UserID), m.Email, m.DisplayName, string(m.Role),
		mapStringNull(m.InvitedBy), mapOptionalTime(m.InvitedAt), mapOptionalTime(m.AcceptedAt),
		now, now)
	return mapConstraint(err)
}

func (r *membersRepo) UpdateMember(ctx context.Context, m domain.Member, expectedVersion int64) (domain.Member, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE members
		    SET user_id = ?, email = ?, display_name = ?, role = ?,
		        accepted_at = ?, version = version + 1, updated_at = ?
		  WHERE id = ? AND version = ?`,
		mapStringNull(m.UserID), m.Email, m.DisplayName, string(m.Role),
		mapOptionalTime(m.AcceptedAt), now,
		m.ID, expectedVersion)
	if err != nil {
		return domain.Member{}, mapConstraint(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.Member{}, err
	}
	if n == 0 {
		// Either the row vanished or someone else won the version race.
		if _, getErr := r.GetMemberByID(ctx, m.ID); getErr != nil {
			return domain.Member{}, getErr
		}
		return domain.Member{}, store.ErrVersionConflict
	}

	m.Version = expectedVersion + 1
	m.UpdatedAt = now
	return m, nil
}

func (r *membersRepo) DeleteMember(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *membersRepo) CountActiveOwners(ctx context.Context, clientID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members
		  WHERE client_id = ? AND role = 'owner' AND accepted_at IS NOT NULL`,
		clientID).Scan(&n)
	return n, err
}

func (r *membersRepo) DeleteStalePendingInvites(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM members
		  WHERE accepted_at IS NULL AND invited_at IS NOT NULL AND invited_at < ?`,
		cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanMember(row rowScanner) (domain.Member, error) {
	var (
		m         domain.Member
		userID    sql.NullString
		invitedBy sql.NullString
		invitedAt sql.NullTime
		accepted  sql.NullTime
		role      string
	)
	err := row.Scan(&m.ID, &m.ClientID, &userID, &m.Email, &m.DisplayName, &role,
		&invitedBy, &invitedAt, &accepted, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Member{}, mapNotFound(err)
	}

	m.UserID = mapNullString(userID)
	m.InvitedBy = mapNullString(invitedBy)
	m.InvitedAt = mapNullTimePtr(invitedAt)
	m.AcceptedAt = mapNullTimePtr(accepted)
	m.Role = domain.Role(role)
	return m, nil
}
