// internal/report/report.go

// Package report renders the grouped website listing for export.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/yout0703/web-collector/internal/models"
)

// RenderText produces the plain-text template grouping report.
func RenderText(groups []models.TemplateGroup, now time.Time) string {
	var b strings.Builder

	b.WriteString("Website template groups\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, g := range groups {
		fmt.Fprintf(&b, "Template #%d\n", g.TemplateID)
		fmt.Fprintf(&b, "Created: %s\n", g.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "Websites: %d\n", g.WebsiteCount)
		b.WriteString("\nMembers:\n")
		for _, w := range g.Websites {
			fmt.Fprintf(&b, "- %s\n", w.URL)
		}
		b.WriteString("\n" + strings.Repeat("-", 30) + "\n\n")
	}

	return b.String()
}
