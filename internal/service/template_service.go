package service

import (
	"context"
	"fmt"
	"html"
	"regexp"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/tracing"
)

// TemplateService resolves stored templates and substitutes variables
type TemplateService struct {
	repo   domain.TemplateRepository
	logger logger.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(repo domain.TemplateRepository, logger logger.Logger) *TemplateService {
	return &TemplateService{
		repo:   repo,
		logger: logger,
	}
}

// Render resolves key by id or slug and substitutes {{var}} placeholders
// in subject and HTML. Caller values are applied first, then template
// defaults fill what remains; unfilled placeholders stay literal. Every
// substituted value is HTML-escaped.
func (s *TemplateService) Render(ctx context.Context, userID, key string, variables map[string]string) (*domain.RenderedTemplate, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "Render")
	defer span.End()

	template, err := s.repo.GetByIDOrSlug(ctx, userID, key)
	if err != nil {
		return nil, err
	}

	subject := template.Subject
	htmlContent := template.HTMLContent

	for name, value := range variables {
		subject = substitutePlaceholder(subject, name, value)
		htmlContent = substitutePlaceholder(htmlContent, name, value)
	}

	for _, v := range template.Variables {
		if v.DefaultValue == "" {
			continue
		}
		if _, supplied := variables[v.Name]; supplied {
			continue
		}
		subject = substitutePlaceholder(subject, v.Name, v.DefaultValue)
		htmlContent = substitutePlaceholder(htmlContent, v.Name, v.DefaultValue)
	}

	return &domain.RenderedTemplate{
		TemplateID: template.ID,
		Subject:    subject,
		HTML:       htmlContent,
	}, nil
}

// substitutePlaceholder replaces every whitespace-tolerant {{name}}
// occurrence with the HTML-escaped value.
func substitutePlaceholder(content, name, value string) string {
	re := regexp.MustCompile(fmt.Sprintf(`\{\{\s*%s\s*\}\}`, regexp.QuoteMeta(name)))
	return re.ReplaceAllLiteralString(content, html.EscapeString(value))
}
