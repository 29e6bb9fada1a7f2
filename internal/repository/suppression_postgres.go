package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/relaypost/relaypost/internal/domain"
)

// SuppressionRepository implements domain.SuppressionRepository
type SuppressionRepository struct {
	db *sql.DB
}

// NewSuppressionRepository creates a new suppression repository
func NewSuppressionRepository(db *sql.DB) *SuppressionRepository {
	return &SuppressionRepository{db: db}
}

func suppressionSelectFields() string {
	return `id, user_id, domain_id, email, reason, source_event_id, metadata, created_at`
}

func scanSuppression(scanner interface {
	Scan(dest ...interface{}) error
}, s *domain.Suppression) error {
	return scanner.Scan(
		&s.ID,
		&s.UserID,
		&s.DomainID,
		&s.Email,
		&s.Reason,
		&s.SourceEventID,
		&s.Metadata,
		&s.CreatedAt,
	)
}

// CheckBlocked returns the subset of emails with a blocking row for the
// user within the domain scope. Rows with a NULL domain_id apply to all
// of the user's domains.
func (r *SuppressionRepository) CheckBlocked(ctx context.Context, userID string, emails []string, domainID string) ([]string, error) {
	if len(emails) == 0 {
		return []string{}, nil
	}

	query := `
		SELECT DISTINCT email
		FROM email_suppressions
		WHERE user_id = $1
			AND email = ANY($2)
			AND reason = ANY($3)
			AND (domain_id IS NULL OR domain_id = $4)
	`
	args := []interface{}{userID, pq.Array(emails), pq.Array(domain.BlockingReasons), domainID}
	if domainID == "" {
		query = `
		SELECT DISTINCT email
		FROM email_suppressions
		WHERE user_id = $1
			AND email = ANY($2)
			AND reason = ANY($3)
			AND domain_id IS NULL
	`
		args = args[:3]
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check suppressions: %w", err)
	}
	defer rows.Close()

	suppressed := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan suppressed email: %w", err)
		}
		suppressed = append(suppressed, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suppressed emails: %w", err)
	}

	return suppressed, nil
}

// GetByEmail returns the user's row for the address, or *ErrNotFound.
func (r *SuppressionRepository) GetByEmail(ctx context.Context, userID, email string) (*domain.Suppression, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM email_suppressions
		WHERE user_id = $1 AND email = $2
		LIMIT 1
	`, suppressionSelectFields())

	var s domain.Suppression
	err := scanSuppression(r.db.QueryRowContext(ctx, query, userID, email), &s)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "suppression", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suppression: %w", err)
	}
	return &s, nil
}

// Create inserts a new suppression row.
func (r *SuppressionRepository) Create(ctx context.Context, s *domain.Suppression) error {
	query := `
		INSERT INTO email_suppressions (
			id, user_id, domain_id, email, reason, source_event_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.DomainID, s.Email, s.Reason, s.SourceEventID, s.Metadata, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create suppression: %w", err)
	}
	return nil
}

// Update rewrites reason and metadata of an existing row.
func (r *SuppressionRepository) Update(ctx context.Context, s *domain.Suppression) error {
	query := `UPDATE email_suppressions SET reason = $2, metadata = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.Reason, s.Metadata)
	if err != nil {
		return fmt.Errorf("failed to update suppression: %w", err)
	}
	return nil
}

// Delete removes the row iff it belongs to the user.
func (r *SuppressionRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM email_suppressions WHERE user_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete suppression: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return &domain.ErrNotFound{Entity: "suppression", ID: id}
	}
	return nil
}

// List returns a filtered page plus the total matching count.
func (r *SuppressionRepository) List(ctx context.Context, userID string, params domain.SuppressionListParams) ([]*domain.Suppression, int, error) {
	base := sq.Select().
		From("email_suppressions").
		Where(sq.Eq{"user_id": userID}).
		PlaceholderFormat(sq.Dollar)

	if params.Reason != "" {
		base = base.Where(sq.Eq{"reason": params.Reason})
	}
	if params.Email != "" {
		base = base.Where(sq.ILike{"email": "%" + params.Email + "%"})
	}
	if params.DomainID != "" {
		base = base.Where(sq.Eq{"domain_id": params.DomainID})
	}

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count suppressions: %w", err)
	}

	listQuery, listArgs, err := base.
		Columns(suppressionSelectFields()).
		OrderBy("created_at DESC").
		Limit(uint64(params.Limit)).
		Offset(uint64(params.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suppressions: %w", err)
	}
	defer rows.Close()

	suppressions := []*domain.Suppression{}
	for rows.Next() {
		var s domain.Suppression
		if err := scanSuppression(rows, &s); err != nil {
			return nil, 0, fmt.Errorf("failed to scan suppression: %w", err)
		}
		suppressions = append(suppressions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate suppressions: %w", err)
	}

	return suppressions, total, nil
}

// Stats counts rows grouped by reason.
func (r *SuppressionRepository) Stats(ctx context.Context, userID string) (*domain.SuppressionStats, error) {
	query := `
		SELECT reason, COUNT(*)
		FROM email_suppressions
		WHERE user_id = $1
		GROUP BY reason
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get suppression stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.SuppressionStats{ByReason: make(map[string]int)}
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan suppression stats: %w", err)
		}
		stats.ByReason[reason] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suppression stats: %w", err)
	}

	return stats, nil
}
