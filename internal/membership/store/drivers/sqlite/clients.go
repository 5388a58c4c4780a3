package sqlite

import (
	"context"
	"time"

	"github.com/clearcomply/membership/internal/membership/domain"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, contact_email, status, created_by, created_at, updated_at`

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

func (r *clientsRepo) ListClientsByUser(ctx context.Context, userID string) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.contact_email, c.status, c.created_by, c.created_at, c.updated_at
		   FROM clients c
		   JOIN members m ON m.client_id = c.id
		  WHERE m.user_id = ? AND m.accepted_at IS NOT NULL
		  ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, contact_email, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.ContactEmail, string(c.Status), c.CreatedBy, now, now)
	return mapConstraint(err)
}

func (r *clientsRepo) UpdateClient(ctx context.Context, c domain.Client) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients
		    SET name = ?, contact_email = ?, status = ?, updated_at = ?
		  WHERE id = ?`,
		c.Name, c.ContactEmail, string(c.Status), time.Now().UTC(), c.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var c domain.Client
	var status string
	err := row.Scan(&c.ID, &c.Name, &c.ContactEmail, &status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	c.Status = domain.ClientStatus(status)
	return c, nil
}
