package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexops/notify/internal/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

const notificationColumns = `
	id, tenant_id, user_id, type, title, message, payload,
	urgency, channels, created_at, expires_at, read_at`

func (r *pgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, tenant_id, user_id, type, title, message, payload,
			 urgency, channels, created_at, expires_at, read_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		n.ID, n.TenantID, n.UserID, n.Type, n.Title, n.Message, n.Payload,
		n.Urgency, channelsToStrings(n.Channels), n.CreatedAt, n.ExpiresAt, n.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *pgNotificationRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications WHERE tenant_id = $1 AND id = $2`, tenantID, id)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Notification, int, error) {
	where, args := buildListWhere(f)
	offset := (f.Page - 1) * f.Limit

	// Count total matching rows for pagination metadata.
	var total int
	countQuery := "SELECT COUNT(*) FROM notifications" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	// Append pagination args after the WHERE args.
	args = append(args, f.Limit, offset)
	limitPlaceholder := fmt.Sprintf("$%d", len(args)-1)
	offsetPlaceholder := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications%s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`, notificationColumns, where, limitPlaceholder, offsetPlaceholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

func (r *pgNotificationRepository) MarkRead(ctx context.Context, tenantID, id string, readAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = $1
		WHERE tenant_id = $2 AND id = $3 AND read_at IS NULL`,
		readAt, tenantID, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already read; distinguish for the caller.
		if _, err := r.GetByID(ctx, tenantID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgNotificationRepository) FindByLegacyID(ctx context.Context, tenantID, legacyID string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE tenant_id = $1 AND payload->>'legacyId' = $2
		LIMIT 1`, tenantID, legacyID)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- helpers ----

// scanNotification reads a single notification row from any pgx row type.
func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n        domain.Notification
		channels []string
	)
	err := row.Scan(
		&n.ID, &n.TenantID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Payload,
		&n.Urgency, &channels, &n.CreatedAt, &n.ExpiresAt, &n.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	n.Channels = channelsFromStrings(channels)
	return &n, nil
}

func channelsToStrings(channels []domain.Channel) []string {
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = string(ch)
	}
	return out
}

func channelsFromStrings(values []string) []domain.Channel {
	out := make([]domain.Channel, len(values))
	for i, v := range values {
		out[i] = domain.Channel(v)
	}
	return out
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
// TenantID and UserID are always present; listing is per recipient.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	add("tenant_id = $%d", f.TenantID)
	add("user_id = $%d", f.UserID)
	if f.Type != nil {
		add("type = $%d", *f.Type)
	}
	if f.UnreadOnly {
		conditions = append(conditions, "read_at IS NULL")
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}
