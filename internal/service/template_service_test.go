package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/pkg/logger"
)

func TestTemplateService_Render(t *testing.T) {
	ctx := context.Background()

	newService := func(template *domain.EmailTemplate) *TemplateService {
		repo := &repository.MockTemplateRepository{}
		if template == nil {
			repo.On("GetByIDOrSlug", mock.Anything, "user1", mock.Anything).
				Return(nil, &domain.ErrNotFound{Entity: "template", ID: "missing"})
		} else {
			repo.On("GetByIDOrSlug", mock.Anything, "user1", mock.Anything).
				Return(template, nil)
		}
		return NewTemplateService(repo, logger.NewTestLogger(t))
	}

	t.Run("substitutes caller variables", func(t *testing.T) {
		svc := newService(&domain.EmailTemplate{
			ID:          "tpl1",
			Subject:     "Hello {{name}}",
			HTMLContent: "<p>Hi {{ name }}, welcome to {{product}}</p>",
		})

		rendered, err := svc.Render(ctx, "user1", "tpl1", map[string]string{
			"name":    "Bob",
			"product": "Relaypost",
		})
		require.NoError(t, err)
		assert.Equal(t, "tpl1", rendered.TemplateID)
		assert.Equal(t, "Hello Bob", rendered.Subject)
		assert.Equal(t, "<p>Hi Bob, welcome to Relaypost</p>", rendered.HTML)
	})

	t.Run("escapes HTML in values", func(t *testing.T) {
		svc := newService(&domain.EmailTemplate{
			ID:          "tpl1",
			Subject:     "{{name}}",
			HTMLContent: "<p>{{name}}</p>",
		})

		rendered, err := svc.Render(ctx, "user1", "tpl1", map[string]string{
			"name": `<script>alert("x")</script>`,
		})
		require.NoError(t, err)
		assert.NotContains(t, rendered.Subject, "<script>")
		assert.NotContains(t, rendered.HTML, "<script>")
		assert.Contains(t, rendered.HTML, "&lt;script&gt;")
	})

	t.Run("defaults fill unsupplied placeholders only", func(t *testing.T) {
		svc := newService(&domain.EmailTemplate{
			ID:          "tpl1",
			Subject:     "{{greeting}} {{name}}",
			HTMLContent: "<p>{{greeting}} {{name}}</p>",
			Variables: []domain.TemplateVariable{
				{TemplateID: "tpl1", Name: "greeting", DefaultValue: "Hello"},
				{TemplateID: "tpl1", Name: "name", DefaultValue: "there"},
			},
		})

		rendered, err := svc.Render(ctx, "user1", "tpl1", map[string]string{"name": "Bob"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Bob", rendered.Subject)
	})

	t.Run("unfilled placeholders stay literal", func(t *testing.T) {
		svc := newService(&domain.EmailTemplate{
			ID:          "tpl1",
			Subject:     "Hi {{name}}",
			HTMLContent: "<p>{{unknown}}</p>",
		})

		rendered, err := svc.Render(ctx, "user1", "tpl1", nil)
		require.NoError(t, err)
		assert.Equal(t, "Hi {{name}}", rendered.Subject)
		assert.Equal(t, "<p>{{unknown}}</p>", rendered.HTML)
	})

	t.Run("unknown template returns not found", func(t *testing.T) {
		svc := newService(nil)

		_, err := svc.Render(ctx, "user1", "missing", nil)
		var notFound *domain.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}
