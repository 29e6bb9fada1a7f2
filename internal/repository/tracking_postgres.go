package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaypost/relaypost/internal/domain"
)

// TrackingRepository implements domain.TrackingRepository
type TrackingRepository struct {
	db *sql.DB
}

// NewTrackingRepository creates a new tracking repository
func NewTrackingRepository(db *sql.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// CreateOpens inserts the per-recipient open rows for a message.
func (r *TrackingRepository) CreateOpens(ctx context.Context, opens []*domain.TrackingOpen) error {
	if len(opens) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO email_tracking_opens (
			id, user_id, message_id, recipient_email, sending_domain, open_count, created_at
		) VALUES ($1, $2, $3, $4, $5, 0, $6)
	`
	for _, open := range opens {
		_, err := tx.ExecContext(ctx, query,
			open.ID, open.UserID, open.MessageID,
			open.RecipientEmail, open.SendingDomain, open.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create tracking open: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tracking opens: %w", err)
	}
	return nil
}

// CreateLinks inserts the per-URL link rows for a message.
func (r *TrackingRepository) CreateLinks(ctx context.Context, links []*domain.TrackingLink) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO email_tracking_links (
			id, user_id, message_id, recipient_email, sending_domain, original_url, click_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
	`
	for _, link := range links {
		_, err := tx.ExecContext(ctx, query,
			link.ID, link.UserID, link.MessageID,
			link.RecipientEmail, link.SendingDomain, link.OriginalURL, link.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create tracking link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tracking links: %w", err)
	}
	return nil
}

// TouchOpen registers one pixel hit. The increment and first-touch check
// run in a single UPDATE so concurrent hits never lose counts; the
// RETURNING comparison reports whether this hit set opened_at.
func (r *TrackingRepository) TouchOpen(ctx context.Context, id string, at time.Time) (*domain.OpenTouch, error) {
	query := `
		UPDATE email_tracking_opens
		SET open_count = open_count + 1, opened_at = COALESCE(opened_at, $2)
		WHERE id = $1
		RETURNING id, user_id, message_id, recipient_email, sending_domain,
			opened_at, open_count, created_at, (opened_at = $2) AS first_touch
	`

	var open domain.TrackingOpen
	var firstTouch bool
	err := r.db.QueryRowContext(ctx, query, id, at).Scan(
		&open.ID, &open.UserID, &open.MessageID,
		&open.RecipientEmail, &open.SendingDomain,
		&open.OpenedAt, &open.OpenCount, &open.CreatedAt,
		&firstTouch,
	)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "tracking open", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to touch tracking open: %w", err)
	}

	return &domain.OpenTouch{
		Open:       &open,
		OpenCount:  open.OpenCount,
		FirstTouch: firstTouch,
	}, nil
}

// TouchClick mirrors TouchOpen for link rows.
func (r *TrackingRepository) TouchClick(ctx context.Context, id string, at time.Time) (*domain.ClickTouch, error) {
	query := `
		UPDATE email_tracking_links
		SET click_count = click_count + 1, clicked_at = COALESCE(clicked_at, $2)
		WHERE id = $1
		RETURNING id, user_id, message_id, recipient_email, sending_domain,
			original_url, clicked_at, click_count, created_at, (clicked_at = $2) AS first_touch
	`

	var link domain.TrackingLink
	var firstTouch bool
	err := r.db.QueryRowContext(ctx, query, id, at).Scan(
		&link.ID, &link.UserID, &link.MessageID,
		&link.RecipientEmail, &link.SendingDomain,
		&link.OriginalURL, &link.ClickedAt, &link.ClickCount, &link.CreatedAt,
		&firstTouch,
	)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "tracking link", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to touch tracking link: %w", err)
	}

	return &domain.ClickTouch{
		Link:       &link,
		ClickCount: link.ClickCount,
		FirstTouch: firstTouch,
	}, nil
}
