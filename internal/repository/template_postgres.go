package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaypost/relaypost/internal/domain"
)

// TemplateRepository implements domain.TemplateRepository
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetByIDOrSlug resolves key as an id first, then as a slug.
func (r *TemplateRepository) GetByIDOrSlug(ctx context.Context, userID, key string) (*domain.EmailTemplate, error) {
	query := `
		SELECT id, user_id, slug, subject, html_content, is_active
		FROM email_templates
		WHERE user_id = $1 AND (id = $2 OR slug = $2) AND is_active = true
		ORDER BY (id = $2) DESC
		LIMIT 1
	`

	var template domain.EmailTemplate
	err := r.db.QueryRowContext(ctx, query, userID, key).Scan(
		&template.ID,
		&template.UserID,
		&template.Slug,
		&template.Subject,
		&template.HTMLContent,
		&template.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "template", ID: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	variables, err := r.getVariables(ctx, template.ID)
	if err != nil {
		return nil, err
	}
	template.Variables = variables

	return &template, nil
}

func (r *TemplateRepository) getVariables(ctx context.Context, templateID string) ([]domain.TemplateVariable, error) {
	query := `
		SELECT template_id, name, COALESCE(default_value, '')
		FROM email_template_variables
		WHERE template_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template variables: %w", err)
	}
	defer rows.Close()

	var variables []domain.TemplateVariable
	for rows.Next() {
		var v domain.TemplateVariable
		if err := rows.Scan(&v.TemplateID, &v.Name, &v.DefaultValue); err != nil {
			return nil, fmt.Errorf("failed to scan template variable: %w", err)
		}
		variables = append(variables, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate template variables: %w", err)
	}

	return variables, nil
}
