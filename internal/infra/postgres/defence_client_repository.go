package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// DefenceClient is a defendant known to the case management feed. Grants are
// only issued against clients present here.
type DefenceClient struct {
	ID          shared.ID
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	CaseID      shared.ID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DefenceClientRepository persists the defence clients ingested from the
// case management feed.
type DefenceClientRepository struct {
	db *DB
}

// NewDefenceClientRepository creates a new DefenceClientRepository.
func NewDefenceClientRepository(db *DB) *DefenceClientRepository {
	return &DefenceClientRepository{db: db}
}

// Exists reports whether a defence client is known.
func (r *DefenceClientRepository) Exists(ctx context.Context, id shared.ID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM defence_clients WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check defence client %s: %w", id, err)
	}
	return exists, nil
}

// Upsert inserts or refreshes a defence client from the feed.
func (r *DefenceClientRepository) Upsert(ctx context.Context, client *DefenceClient) error {
	query := `
		INSERT INTO defence_clients (id, first_name, last_name, date_of_birth, case_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			date_of_birth = EXCLUDED.date_of_birth,
			case_id = EXCLUDED.case_id,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		client.ID, client.FirstName, client.LastName,
		nullTime(client.DateOfBirth), client.CaseID,
	)
	if err != nil {
		return fmt.Errorf("upsert defence client %s: %w", client.ID, err)
	}
	return nil
}

// Get returns a defence client, or (nil, nil) when unknown.
func (r *DefenceClientRepository) Get(ctx context.Context, id shared.ID) (*DefenceClient, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth, case_id, created_at, updated_at
		FROM defence_clients
		WHERE id = $1
	`

	var (
		client DefenceClient
		dob    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&client.ID, &client.FirstName, &client.LastName,
		&dob, &client.CaseID, &client.CreatedAt, &client.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load defence client %s: %w", id, err)
	}
	client.DateOfBirth = nullTimeValue(dob)
	return &client, nil
}

// FindByCase lists the defence clients of a case.
func (r *DefenceClientRepository) FindByCase(ctx context.Context, caseID shared.ID) ([]*DefenceClient, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth, case_id, created_at, updated_at
		FROM defence_clients
		WHERE case_id = $1
		ORDER BY last_name, first_name
	`

	rows, err := r.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("list defence clients for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var clients []*DefenceClient
	for rows.Next() {
		var (
			client DefenceClient
			dob    sql.NullTime
		)
		if err := rows.Scan(
			&client.ID, &client.FirstName, &client.LastName,
			&dob, &client.CaseID, &client.CreatedAt, &client.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan defence client: %w", err)
		}
		client.DateOfBirth = nullTimeValue(dob)
		clients = append(clients, &client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate defence clients: %w", err)
	}
	return clients, nil
}
