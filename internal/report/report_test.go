package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yout0703/web-collector/internal/models"
)

func TestRenderText(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	groups := []models.TemplateGroup{
		{
			TemplateID:   1,
			WebsiteCount: 2,
			CreatedAt:    now.Add(-24 * time.Hour),
			Websites: []models.TemplateMember{
				{URL: "https://a.example"},
				{URL: "https://b.example"},
			},
		},
		{TemplateID: 2, WebsiteCount: 0},
	}

	out := RenderText(groups, now)

	assert.Contains(t, out, "Generated: 2025-06-01 12:00:00")
	assert.Contains(t, out, "Template #1")
	assert.Contains(t, out, "- https://a.example")
	assert.Contains(t, out, "- https://b.example")
	assert.Contains(t, out, "Template #2")
}

func TestRenderText_Empty(t *testing.T) {
	out := RenderText(nil, time.Now())
	assert.Contains(t, out, "Website template groups")
	assert.NotContains(t, out, "Template #")
}
