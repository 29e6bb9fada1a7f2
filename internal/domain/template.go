package domain

import (
	"context"
)

// EmailTemplate is a stored message body resolved by id or slug.
type EmailTemplate struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Slug        string             `json:"slug"`
	Subject     string             `json:"subject"`
	HTMLContent string             `json:"html_content"`
	IsActive    bool               `json:"is_active"`
	Variables   []TemplateVariable `json:"variables,omitempty"`
}

// TemplateVariable declares a placeholder with an optional default, applied
// after caller-supplied variables.
type TemplateVariable struct {
	TemplateID   string `json:"template_id"`
	Name         string `json:"name"`
	DefaultValue string `json:"default_value"`
}

// RenderedTemplate is the output of template resolution and substitution.
type RenderedTemplate struct {
	TemplateID string `json:"templateId"`
	Subject    string `json:"subject"`
	HTML       string `json:"html"`
}

//go:generate mockgen -destination mocks/mock_template_repository.go -package mocks github.com/relaypost/relaypost/internal/domain TemplateRepository

// TemplateRepository loads templates and their declared variables.
type TemplateRepository interface {
	// GetByIDOrSlug returns the active template whose id or slug equals key
	// for the user, preferring an id match. Returns *ErrNotFound when no
	// active template matches.
	GetByIDOrSlug(ctx context.Context, userID, key string) (*EmailTemplate, error)
}

// TemplateService resolves a template key and substitutes variables.
type TemplateService interface {
	// Render resolves key for the user and substitutes the given variables
	// into subject and HTML, HTML-escaping every value. Template defaults
	// fill placeholders the caller did not supply; anything still unfilled
	// stays literal.
	Render(ctx context.Context, userID, key string, variables map[string]string) (*RenderedTemplate, error)
}
