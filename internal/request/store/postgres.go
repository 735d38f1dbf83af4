package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arkhiv/internal/request/models"
	id "arkhiv/pkg/domain"
	"arkhiv/pkg/platform/sentinel"
)

// Postgres implements the request store on PostgreSQL.
//
// Execute wraps the read-validate-write sequence in a transaction with
// SELECT ... FOR UPDATE, so two racing transitions on the same request
// serialize at the row lock: the second transaction re-reads the committed
// state and its validation runs against it. The partial index on
// (record_id, user_id) WHERE status = 'approved' keeps ExistsApproved an
// index-only probe on the download hot path.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const requestColumns = `
	id, record_id, user_id, type, status, rejection_reason,
	processed_by_id, processed_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, request *models.Request) error {
	query := `
		INSERT INTO access_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query, insertArgs(request)...)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE id = $1`
	request, err := scanRequest(s.db.QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select request: %w", err)
	}
	return request, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return s.queryRequests(ctx, query, uuid.UUID(userID))
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests
		ORDER BY created_at DESC
	`
	return s.queryRequests(ctx, query)
}

func (s *Postgres) ExistsApproved(ctx context.Context, recordID id.RecordID, userID id.UserID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM access_requests
			WHERE record_id = $1 AND user_id = $2 AND status = 'approved'
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(recordID), uuid.UUID(userID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check approved request: %w", err)
	}
	return exists, nil
}

// Execute loads the request under a row lock, runs validate then mutate, and
// persists the full entity in the same transaction. Any error rolls back and
// leaves the stored state untouched.
func (s *Postgres) Execute(ctx context.Context, requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request)) (*models.Request, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE id = $1 FOR UPDATE`
	request, err := scanRequest(tx.QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}

	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)
	if err := request.Validate(); err != nil {
		return nil, err
	}

	update := `
		UPDATE access_requests
		SET status = $2, rejection_reason = $3, processed_by_id = $4,
		    processed_at = $5, updated_at = $6
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		uuid.UUID(request.ID),
		string(request.Status),
		nullString(request.RejectionReason),
		nullUUID(request.ProcessedByID),
		nullTime(request.ProcessedAt),
		request.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return request, nil
}

func (s *Postgres) Delete(ctx context.Context, requestID id.RequestID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM access_requests WHERE id = $1`, uuid.UUID(requestID))
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete request rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) queryRequests(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		request         models.Request
		rawID           uuid.UUID
		rawRecordID     uuid.UUID
		rawUserID       uuid.UUID
		typ             string
		status          string
		rejectionReason sql.NullString
		processedByID   uuid.NullUUID
		processedAt     sql.NullTime
	)
	err := row.Scan(
		&rawID,
		&rawRecordID,
		&rawUserID,
		&typ,
		&status,
		&rejectionReason,
		&processedByID,
		&processedAt,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	request.ID = id.RequestID(rawID)
	request.RecordID = id.RecordID(rawRecordID)
	request.UserID = id.UserID(rawUserID)
	request.Type = models.RequestType(typ)
	request.Status = models.RequestStatus(status)
	request.RejectionReason = rejectionReason.String
	if processedByID.Valid {
		request.ProcessedByID = id.UserID(processedByID.UUID)
	}
	if processedAt.Valid {
		t := processedAt.Time
		request.ProcessedAt = &t
	}
	return &request, nil
}

func insertArgs(r *models.Request) []any {
	return []any{
		uuid.UUID(r.ID),
		uuid.UUID(r.RecordID),
		uuid.UUID(r.UserID),
		string(r.Type),
		string(r.Status),
		nullString(r.RejectionReason),
		nullUUID(r.ProcessedByID),
		nullTime(r.ProcessedAt),
		r.CreatedAt,
		r.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
