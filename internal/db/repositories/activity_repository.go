// activity_repository.go implements ActivityRepository, providing database queries for
// writing and retrieving activity log entries with support for filtered queries across
// events and outcomes.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/db/models"
)

// ActivityRepository handles activity log database operations
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ActivityFilters contains filters for querying activity logs
type ActivityFilters struct {
	Event     *string
	Success   *bool
	AppUserID *string
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateActivityLog creates a new activity log entry
func (r *ActivityRepository) CreateActivityLog(ctx context.Context, log *models.ActivityLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now()

	// Marshal metadata to JSONB
	var metadataJSON []byte
	var err error
	if log.Metadata != nil {
		metadataJSON, err = json.Marshal(log.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO activity_logs (id, application_id, app_user_id, event, success, error_message, ip_address, hwid, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.ApplicationID,
		log.AppUserID,
		log.Event,
		log.Success,
		log.ErrorMessage,
		log.IPAddress,
		log.HWID,
		log.UserAgent,
		metadataJSON,
		log.CreatedAt,
	)

	return err
}

// ListActivityLogs retrieves activity logs for an application with optional
// filters and pagination, newest first.
func (r *ActivityRepository) ListActivityLogs(ctx context.Context, applicationID string, filters ActivityFilters, limit, offset int) ([]*models.ActivityLog, int, error) {
	countQuery := `SELECT COUNT(*) FROM activity_logs WHERE application_id = $1`
	query := `
		SELECT id, application_id, app_user_id, event, success, error_message, ip_address, hwid, user_agent, metadata, created_at
		FROM activity_logs
		WHERE application_id = $1
	`

	args := []interface{}{applicationID}
	paramIndex := 2

	if filters.Event != nil {
		clause := fmt.Sprintf(` AND event = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.Event)
		paramIndex++
	}
	if filters.Success != nil {
		clause := fmt.Sprintf(` AND success = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.Success)
		paramIndex++
	}
	if filters.AppUserID != nil {
		clause := fmt.Sprintf(` AND app_user_id = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.AppUserID)
		paramIndex++
	}
	if filters.StartDate != nil {
		clause := fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.StartDate)
		paramIndex++
	}
	if filters.EndDate != nil {
		clause := fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.EndDate)
		paramIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*models.ActivityLog
	for rows.Next() {
		log := &models.ActivityLog{}
		var metadataJSON []byte

		err := rows.Scan(
			&log.ID,
			&log.ApplicationID,
			&log.AppUserID,
			&log.Event,
			&log.Success,
			&log.ErrorMessage,
			&log.IPAddress,
			&log.HWID,
			&log.UserAgent,
			&metadataJSON,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
				return nil, 0, err
			}
		}
		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}
