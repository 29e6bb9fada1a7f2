package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/relaypost/relaypost/internal/domain"
)

// EventRepository implements domain.EventRepository
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new email event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func eventSelectFields() string {
	return `id, user_id, message_id, event_type, recipient_email, sending_domain,
		COALESCE(subject, ''), metadata, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at`
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}, event *domain.EmailEvent) error {
	return scanner.Scan(
		&event.ID,
		&event.UserID,
		&event.MessageID,
		&event.EventType,
		&event.RecipientEmail,
		&event.SendingDomain,
		&event.Subject,
		&event.Metadata,
		&event.IPAddress,
		&event.UserAgent,
		&event.CreatedAt,
	)
}

const insertEventQuery = `
	INSERT INTO email_events (
		id, user_id, message_id, event_type, recipient_email, sending_domain,
		subject, metadata, ip_address, user_agent, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Create inserts a single event row.
func (r *EventRepository) Create(ctx context.Context, event *domain.EmailEvent) error {
	_, err := r.db.ExecContext(
		ctx,
		insertEventQuery,
		event.ID,
		event.UserID,
		event.MessageID,
		event.EventType,
		event.RecipientEmail,
		event.SendingDomain,
		event.Subject,
		event.Metadata,
		event.IPAddress,
		event.UserAgent,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create email event: %w", err)
	}
	return nil
}

// CreateBatch inserts the given events in one transaction so a send's
// queued rows land together or not at all.
func (r *EventRepository) CreateBatch(ctx context.Context, events []*domain.EmailEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		_, err := tx.ExecContext(
			ctx,
			insertEventQuery,
			event.ID,
			event.UserID,
			event.MessageID,
			event.EventType,
			event.RecipientEmail,
			event.SendingDomain,
			event.Subject,
			event.Metadata,
			event.IPAddress,
			event.UserAgent,
			event.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create email event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// List returns a filtered page of events plus the total matching count.
func (r *EventRepository) List(ctx context.Context, userID string, params domain.EventListParams) ([]*domain.EmailEvent, int, error) {
	base := sq.Select().
		From("email_events").
		Where(sq.Eq{"user_id": userID}).
		PlaceholderFormat(sq.Dollar)

	if params.EventType != "" {
		base = base.Where(sq.Eq{"event_type": params.EventType})
	}
	if params.RecipientEmail != "" {
		base = base.Where(sq.ILike{"recipient_email": "%" + params.RecipientEmail + "%"})
	}
	if params.MessageID != "" {
		base = base.Where(sq.Eq{"message_id": params.MessageID})
	}
	if params.StartDate != nil {
		base = base.Where(sq.GtOrEq{"created_at": *params.StartDate})
	}
	if params.EndDate != nil {
		base = base.Where(sq.LtOrEq{"created_at": *params.EndDate})
	}

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count email events: %w", err)
	}

	listQuery, listArgs, err := base.
		Columns(eventSelectFields()).
		OrderBy("created_at DESC").
		Limit(uint64(params.Limit)).
		Offset(uint64(params.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list email events: %w", err)
	}
	defer rows.Close()

	events := []*domain.EmailEvent{}
	for rows.Next() {
		var event domain.EmailEvent
		if err := scanEvent(rows, &event); err != nil {
			return nil, 0, fmt.Errorf("failed to scan email event: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate email events: %w", err)
	}

	return events, total, nil
}

// ListByMessageID returns every event for the message, newest first.
func (r *EventRepository) ListByMessageID(ctx context.Context, userID, messageID string) ([]*domain.EmailEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM email_events
		WHERE user_id = $1 AND message_id = $2
		ORDER BY created_at DESC
	`, eventSelectFields())

	rows, err := r.db.QueryContext(ctx, query, userID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list message events: %w", err)
	}
	defer rows.Close()

	events := []*domain.EmailEvent{}
	for rows.Next() {
		var event domain.EmailEvent
		if err := scanEvent(rows, &event); err != nil {
			return nil, fmt.Errorf("failed to scan email event: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message events: %w", err)
	}

	return events, nil
}

// UpdateQueuedByMessageID transitions the message's queued rows to the
// given type. Scoping to event_type = 'queued' keeps the worker from
// clobbering downstream rows that may already exist for the message.
func (r *EventRepository) UpdateQueuedByMessageID(ctx context.Context, messageID, eventType string, metadata domain.MapOfAny) (int, error) {
	query := `
		UPDATE email_events
		SET event_type = $2, metadata = COALESCE(metadata, '{}'::jsonb) || $3
		WHERE message_id = $1 AND event_type = $4
	`

	result, err := r.db.ExecContext(ctx, query, messageID, eventType, metadata, domain.EventQueued)
	if err != nil {
		return 0, fmt.Errorf("failed to update queued events: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(affected), nil
}

// Stats aggregates per-type counts within the window.
func (r *EventRepository) Stats(ctx context.Context, userID string, startDate, endDate *time.Time) (map[string]int, error) {
	base := sq.Select("event_type", "COUNT(*)").
		From("email_events").
		Where(sq.Eq{"user_id": userID}).
		GroupBy("event_type").
		PlaceholderFormat(sq.Dollar)

	if startDate != nil {
		base = base.Where(sq.GtOrEq{"created_at": *startDate})
	}
	if endDate != nil {
		base = base.Where(sq.LtOrEq{"created_at": *endDate})
	}

	query, args, err := base.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stats query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get event stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event stats: %w", err)
		}
		counts[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event stats: %w", err)
	}

	return counts, nil
}
