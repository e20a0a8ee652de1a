package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/newdaybreak/careers/types"
)

// OutboxRepository handles persistence for pending applicant notifications.
type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

const outboxColumns = `id, application_id, recipient, subject, body, status, attempts,
		last_error, next_attempt_at, created_at, dispatched_at, delivered_at`

func insertNotification(ctx context.Context, q DBTX, n *types.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Status = types.NotificationPending
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.NextAttemptAt.IsZero() {
		n.NextAttemptAt = n.CreatedAt
	}

	const query = `
		INSERT INTO notification_outbox (id, application_id, recipient, subject, body, status, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(
		ctx,
		query,
		n.ID,
		n.ApplicationID,
		n.Recipient,
		n.Subject,
		n.Body,
		n.Status,
		n.NextAttemptAt,
		n.CreatedAt,
	)
	return err
}

func (r *OutboxRepository) Get(ctx context.Context, id string) (types.Notification, error) {
	const query = `
		SELECT ` + outboxColumns + `
		FROM notification_outbox
		WHERE id = $1`
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Notification{}, ErrNotFound
		}
		return types.Notification{}, err
	}
	return n, nil
}

// ListDue returns up to limit pending notifications whose next attempt is due
// at now, earliest first.
func (r *OutboxRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]types.Notification, error) {
	if limit < 1 {
		limit = 50
	}

	const query = `
		SELECT ` + outboxColumns + `
		FROM notification_outbox
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY next_attempt_at, created_at, id
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, types.NotificationPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkDispatched records that the notification was handed to its transport.
// Delivered notifications are left untouched.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string) error {
	const query = `
		UPDATE notification_outbox
		SET status = CASE WHEN status = $1 THEN status ELSE $2 END,
			dispatched_at = COALESCE(dispatched_at, $3)
		WHERE id = $4`
	return r.execOne(ctx, query, types.NotificationDelivered, types.NotificationDispatched, time.Now().UTC(), id)
}

// MarkFailed counts a failed relay attempt and keeps the entry pending until
// retryAt.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, cause string, retryAt time.Time) error {
	const query = `
		UPDATE notification_outbox
		SET attempts = attempts + 1,
			last_error = $1,
			next_attempt_at = $2
		WHERE id = $3 AND status = $4`
	return r.execOne(ctx, query, cause, retryAt, id, types.NotificationPending)
}

// MarkUndeliverable counts the final failed attempt and takes the entry out of
// the relay's queue.
func (r *OutboxRepository) MarkUndeliverable(ctx context.Context, id string, cause string) error {
	const query = `
		UPDATE notification_outbox
		SET attempts = attempts + 1,
			last_error = $1,
			status = $2
		WHERE id = $3 AND status = $4`
	return r.execOne(ctx, query, cause, types.NotificationUndeliverable, id, types.NotificationPending)
}

// MarkDelivered records that the email was sent. Repeated calls keep the first
// delivery time.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string) error {
	const query = `
		UPDATE notification_outbox
		SET status = $1,
			delivered_at = COALESCE(delivered_at, $2),
			dispatched_at = COALESCE(dispatched_at, $2)
		WHERE id = $3`
	return r.execOne(ctx, query, types.NotificationDelivered, time.Now().UTC(), id)
}

func (r *OutboxRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotification(row rowScanner) (types.Notification, error) {
	var (
		n            types.Notification
		status       string
		lastError    sql.NullString
		dispatchedAt sql.NullTime
		deliveredAt  sql.NullTime
	)
	if err := row.Scan(
		&n.ID,
		&n.ApplicationID,
		&n.Recipient,
		&n.Subject,
		&n.Body,
		&status,
		&n.Attempts,
		&lastError,
		&n.NextAttemptAt,
		&n.CreatedAt,
		&dispatchedAt,
		&deliveredAt,
	); err != nil {
		return types.Notification{}, err
	}

	n.Status = types.NotificationStatus(status)
	n.LastError = nullableString(lastError)
	if dispatchedAt.Valid {
		t := dispatchedAt.Time
		n.DispatchedAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		n.DeliveredAt = &t
	}
	return n, nil
}
