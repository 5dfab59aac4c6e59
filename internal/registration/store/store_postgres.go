package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mhreg/internal/registration/models"
	dErrors "mhreg/pkg/domain-errors"
)

// PostgresStore persists registrations in PostgreSQL. MHR numbers come from a
// transactional sequence, so concurrent creations never collide.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the registrations table and MHR number sequence if
// they do not exist. Intended for development and integration tests;
// deployments run migrations out of band.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS mhr_registrations (
			id UUID PRIMARY KEY,
			mhr_number TEXT NOT NULL,
			account_id TEXT NOT NULL,
			document_id TEXT NOT NULL DEFAULT '',
			registration_type TEXT NOT NULL,
			status_type TEXT NOT NULL,
			client_reference_id TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL,
			submitting_party JSONB NOT NULL,
			owners JSONB NOT NULL DEFAULT '[]',
			lien_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS mhr_registrations_account_idx ON mhr_registrations (account_id);
		CREATE INDEX IF NOT EXISTS mhr_registrations_mhr_number_idx ON mhr_registrations (mhr_number);
		CREATE SEQUENCE IF NOT EXISTS mhr_number_seq START WITH 100001;
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure registrations schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	if reg == nil {
		return fmt.Errorf("registration is required")
	}
	party, err := json.Marshal(reg.SubmittingParty)
	if err != nil {
		return fmt.Errorf("encode submitting party: %w", err)
	}
	owners, err := json.Marshal(reg.Owners)
	if err != nil {
		return fmt.Errorf("encode owners: %w", err)
	}

	const query = `
		INSERT INTO mhr_registrations (
			id, mhr_number, account_id, document_id, registration_type,
			status_type, client_reference_id, username, submitting_party,
			owners, lien_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		reg.ID, reg.MHRNumber, reg.AccountID, reg.DocumentID, string(reg.RegistrationType),
		string(reg.Status), reg.ClientReferenceID, reg.Username, party,
		owners, reg.LienType, reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByMHRNumber(ctx context.Context, mhrNumber string) (*models.Registration, error) {
	// Amendment chains share an MHR number; the base filing is the earliest.
	const query = `
		SELECT id, mhr_number, account_id, document_id, registration_type,
		       status_type, client_reference_id, username, submitting_party,
		       owners, lien_type, created_at
		FROM mhr_registrations
		WHERE mhr_number = $1
		ORDER BY created_at ASC
		LIMIT 1
	`
	reg, err := scanRegistration(s.db.QueryRowContext(ctx, query, mhrNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "registration %s not found", mhrNumber)
		}
		return nil, fmt.Errorf("get registration %s: %w", mhrNumber, err)
	}
	return reg, nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string) ([]*models.Registration, error) {
	const query = `
		SELECT id, mhr_number, account_id, document_id, registration_type,
		       status_type, client_reference_id, username, submitting_party,
		       owners, lien_type, created_at
		FROM mhr_registrations
		WHERE account_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for account %s: %w", accountID, err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration row: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registration rows: %w", err)
	}
	return regs, nil
}

func (s *PostgresStore) NextMHRNumber(ctx context.Context) (string, error) {
	var next int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('mhr_number_seq')`).Scan(&next); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return "", fmt.Errorf("next MHR number (%s): %w", pqErr.Code, err)
		}
		return "", fmt.Errorf("next MHR number: %w", err)
	}
	return fmt.Sprintf("%06d", next), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg        models.Registration
		id         uuid.UUID
		regType    string
		statusType string
		partyRaw   []byte
		ownersRaw  []byte
	)
	err := row.Scan(
		&id, &reg.MHRNumber, &reg.AccountID, &reg.DocumentID, &regType,
		&statusType, &reg.ClientReferenceID, &reg.Username, &partyRaw,
		&ownersRaw, &reg.LienType, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.ID = id
	reg.RegistrationType = models.RegistrationType(regType)
	reg.Status = models.StatusType(statusType)
	if err := json.Unmarshal(partyRaw, &reg.SubmittingParty); err != nil {
		return nil, fmt.Errorf("decode submitting party: %w", err)
	}
	if err := json.Unmarshal(ownersRaw, &reg.Owners); err != nil {
		return nil, fmt.Errorf("decode owners: %w", err)
	}
	return &reg, nil
}
