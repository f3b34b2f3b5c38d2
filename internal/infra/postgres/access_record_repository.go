package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/shared"
)

// AccessRecordRepository implements access.Repository using PostgreSQL.
type AccessRecordRepository struct {
	db *DB
}

var _ access.Repository = (*AccessRecordRepository)(nil)

// NewAccessRecordRepository creates a new AccessRecordRepository.
func NewAccessRecordRepository(db *DB) *AccessRecordRepository {
	return &AccessRecordRepository{db: db}
}

const accessRecordColumns = `
	case_id, subject_id, kind,
	assignee, assignee_organisation, assignor, assignor_organisation_id,
	representing_organisation, assigned_date, assignment_expiry_date,
	hearing_id, advocates
`

// Get retrieves the record for a key, or (nil, nil) when absent.
func (r *AccessRecordRepository) Get(ctx context.Context, key access.Key) (*access.Record, error) {
	query := `
		SELECT ` + accessRecordColumns + `
		FROM access_records
		WHERE case_id = $1 AND subject_id = $2 AND kind = $3
	`

	row := r.db.QueryRowContext(ctx, query, key.CaseID.String(), key.SubjectID.String(), string(key.Kind))
	record, err := scanAccessRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get access record %s: %w", key, err)
	}
	return record, nil
}

// Put inserts or replaces the record for its key.
func (r *AccessRecordRepository) Put(ctx context.Context, record *access.Record) error {
	assignee, err := json.Marshal(record.AssigneeDetails)
	if err != nil {
		return fmt.Errorf("marshal assignee: %w", err)
	}
	assigneeOrg, err := json.Marshal(record.AssigneeOrganisation)
	if err != nil {
		return fmt.Errorf("marshal assignee organisation: %w", err)
	}
	assignor, err := json.Marshal(record.AssignorDetails)
	if err != nil {
		return fmt.Errorf("marshal assignor: %w", err)
	}
	advocates, err := json.Marshal(record.Advocates)
	if err != nil {
		return fmt.Errorf("marshal advocates: %w", err)
	}

	var hearingID sql.NullString
	if record.HearingID != nil {
		hearingID = sql.NullString{String: record.HearingID.String(), Valid: true}
	}

	query := `
		INSERT INTO access_records (` + accessRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (case_id, subject_id, kind) DO UPDATE SET
			assignee = EXCLUDED.assignee,
			assignee_organisation = EXCLUDED.assignee_organisation,
			assignor = EXCLUDED.assignor,
			assignor_organisation_id = EXCLUDED.assignor_organisation_id,
			representing_organisation = EXCLUDED.representing_organisation,
			assigned_date = EXCLUDED.assigned_date,
			assignment_expiry_date = EXCLUDED.assignment_expiry_date,
			hearing_id = EXCLUDED.hearing_id,
			advocates = EXCLUDED.advocates
	`

	_, err = r.db.ExecContext(ctx, query,
		record.Key.CaseID.String(),
		record.Key.SubjectID.String(),
		string(record.Key.Kind),
		assignee,
		assigneeOrg,
		assignor,
		record.AssignorOrganisationID.String(),
		record.RepresentingOrganisation,
		record.AssignedDate,
		nullTime(record.AssignmentExpiryDate),
		hearingID,
		advocates,
	)
	if err != nil {
		return fmt.Errorf("put access record %s: %w", record.Key, err)
	}
	return nil
}

// Delete removes the record for a key, if present.
func (r *AccessRecordRepository) Delete(ctx context.Context, key access.Key) error {
	query := `DELETE FROM access_records WHERE case_id = $1 AND subject_id = $2 AND kind = $3`
	if _, err := r.db.ExecContext(ctx, query, key.CaseID.String(), key.SubjectID.String(), string(key.Kind)); err != nil {
		return fmt.Errorf("delete access record %s: %w", key, err)
	}
	return nil
}

// FindByCase returns all records for a case.
func (r *AccessRecordRepository) FindByCase(ctx context.Context, caseID shared.ID) ([]*access.Record, error) {
	query := `
		SELECT ` + accessRecordColumns + `
		FROM access_records
		WHERE case_id = $1
		ORDER BY kind, subject_id
	`

	rows, err := r.db.QueryContext(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("find access records for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var records []*access.Record
	for rows.Next() {
		record, err := scanAccessRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access records: %w", err)
	}

	return records, nil
}

// FindExpired returns every record whose expiry is in the past.
func (r *AccessRecordRepository) FindExpired(ctx context.Context) ([]*access.Record, error) {
	query := `
		SELECT ` + accessRecordColumns + `
		FROM access_records
		WHERE assignment_expiry_date IS NOT NULL AND assignment_expiry_date < NOW()
		ORDER BY assignment_expiry_date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find expired access records: %w", err)
	}
	defer rows.Close()

	var records []*access.Record
	for rows.Next() {
		record, err := scanAccessRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access records: %w", err)
	}

	return records, nil
}

// DeleteExpired removes every record whose expiry is in the past.
func (r *AccessRecordRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM access_records WHERE assignment_expiry_date IS NOT NULL AND assignment_expiry_date < NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete expired access records: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted access records: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for scanAccessRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccessRecord(s scanner) (*access.Record, error) {
	var (
		caseID, subjectID, kind         string
		assignee, assigneeOrg, assignor []byte
		assignorOrgID                   string
		representingOrganisation        string
		assignmentExpiry                sql.NullTime
		hearingID                       sql.NullString
		advocates                       []byte
		record                          access.Record
	)

	if err := s.Scan(
		&caseID, &subjectID, &kind,
		&assignee, &assigneeOrg, &assignor, &assignorOrgID,
		&representingOrganisation, &record.AssignedDate, &assignmentExpiry,
		&hearingID, &advocates,
	); err != nil {
		return nil, err
	}

	var err error
	if record.Key.CaseID, err = shared.IDFromString(caseID); err != nil {
		return nil, fmt.Errorf("parse case id: %w", err)
	}
	if record.Key.SubjectID, err = shared.IDFromString(subjectID); err != nil {
		return nil, fmt.Errorf("parse subject id: %w", err)
	}
	record.Key.Kind = access.SubjectKind(kind)

	if err := json.Unmarshal(assignee, &record.AssigneeDetails); err != nil {
		return nil, fmt.Errorf("unmarshal assignee: %w", err)
	}
	if err := json.Unmarshal(assigneeOrg, &record.AssigneeOrganisation); err != nil {
		return nil, fmt.Errorf("unmarshal assignee organisation: %w", err)
	}
	if err := json.Unmarshal(assignor, &record.AssignorDetails); err != nil {
		return nil, fmt.Errorf("unmarshal assignor: %w", err)
	}
	if record.AssignorOrganisationID, err = shared.IDFromString(assignorOrgID); err != nil {
		return nil, fmt.Errorf("parse assignor organisation id: %w", err)
	}
	record.RepresentingOrganisation = representingOrganisation
	record.AssignmentExpiryDate = nullTimeValue(assignmentExpiry)
	if hearingID.Valid {
		id, err := shared.IDFromString(hearingID.String)
		if err != nil {
			return nil, fmt.Errorf("parse hearing id: %w", err)
		}
		record.HearingID = &id
	}
	if len(advocates) > 0 {
		if err := json.Unmarshal(advocates, &record.Advocates); err != nil {
			return nil, fmt.Errorf("unmarshal advocates: %w", err)
		}
	}

	return &record, nil
}
