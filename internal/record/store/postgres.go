package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"arkhiv/internal/record/models"
	id "arkhiv/pkg/domain"
	"arkhiv/pkg/platform/sentinel"
)

// Postgres implements the record store over the records table owned by the
// holdings service. This service reads it; Create exists for integration
// tests and seeds.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO records (id, ref_code, title, access_level, file_name, file_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		record.RefCode,
		record.Title,
		string(record.AccessLevel),
		nullString(record.FileName),
		nullString(record.FilePath),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	query := `
		SELECT id, ref_code, title, access_level, file_name, file_path, created_at, updated_at
		FROM records
		WHERE id = $1
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(recordID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select record: %w", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		record      models.Record
		rawID       uuid.UUID
		accessLevel string
		fileName    sql.NullString
		filePath    sql.NullString
	)
	err := row.Scan(
		&rawID,
		&record.RefCode,
		&record.Title,
		&accessLevel,
		&fileName,
		&filePath,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.ID = id.RecordID(rawID)
	record.AccessLevel = models.AccessLevel(accessLevel)
	record.FileName = fileName.String
	record.FilePath = filePath.String
	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
