// internal/models/template.go
package models

import (
	"encoding/json"
	"time"
)

// Template is a cluster of websites sharing one page template. The
// representative features are those of the founding member and never
// change after creation; WebsiteCount only ever grows.
type Template struct {
	ID            int64     `json:"id"`
	WebsiteCount  int       `json:"websiteCount"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// TemplateRepresentative pairs a template id with the raw stored feature
// payload of its founding member. The payload stays raw so that a corrupt
// row is a checked decode branch in the clusterer, not a store failure
// that would block unrelated classifications.
type TemplateRepresentative struct {
	TemplateID int64
	Features   json.RawMessage
}

// TemplateMember is one website inside a template, as listed to callers.
type TemplateMember struct {
	URL             string    `json:"url"`
	FirstAnalyzedAt time.Time `json:"firstAnalyzedAt"`
	LastUpdatedAt   time.Time `json:"lastUpdatedAt"`
}

// TemplateGroup is a template together with its members, used by the
// export and listing endpoints.
type TemplateGroup struct {
	TemplateID   int64            `json:"templateId"`
	WebsiteCount int              `json:"websiteCount"`
	CreatedAt    time.Time        `json:"createdAt"`
	Websites     []TemplateMember `json:"websites"`
}

// RecentWebsite is one entry of the bounded recent-activity list.
type RecentWebsite struct {
	URL           string    `json:"url"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Statistics summarizes the collection.
type Statistics struct {
	TotalWebsites  int             `json:"totalWebsites"`
	TotalTemplates int             `json:"totalTemplates"`
	RecentWebsites []RecentWebsite `json:"recentWebsites"`
}

// Classification statuses returned to callers.
const (
	ClassificationAssigned  = "assigned"
	ClassificationCreated   = "created"
	ClassificationDuplicate = "duplicate"
)

// Classification is the outcome of classifying one feature vector.
type Classification struct {
	Status     string  `json:"status"`
	WebsiteID  int64   `json:"websiteId"`
	TemplateID int64   `json:"templateId"`
	Similarity float64 `json:"similarity"`
}
