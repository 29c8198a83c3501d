// internal/store/store.go

// Package store persists websites and templates. The clusterer only
// depends on the TemplateStore interface; the PostgreSQL implementation
// lives alongside it.
package store

import (
	"context"

	"github.com/yout0703/web-collector/internal/models"
)

// TemplateStore is the persistence contract the clusterer requires.
//
// ListTemplateRepresentatives returns templates in ascending id, which is
// creation order. The tie-break rule of the classification scan depends
// on this ordering being stable.
type TemplateStore interface {
	ListTemplateRepresentatives(ctx context.Context) ([]models.TemplateRepresentative, error)

	// FindWebsiteByURL returns nil without error when the URL is unknown.
	FindWebsiteByURL(ctx context.Context, url string) (*models.Website, error)

	// InsertWebsite creates a record in status "analyzed". A concurrent or
	// repeated insert of the same URL fails with ErrCodeDuplicateURL.
	InsertWebsite(ctx context.Context, url string, features *models.FeatureVector) (int64, error)

	// AssignWebsite links the website to the template and increments the
	// template's member count as one committed unit.
	AssignWebsite(ctx context.Context, websiteID, templateID int64) error

	// CreateTemplateFromWebsite creates a template whose representative
	// features are the website's own, with member count 1, and links the
	// website to it, as one committed unit.
	CreateTemplateFromWebsite(ctx context.Context, websiteID int64, features *models.FeatureVector) (int64, error)

	TemplateMembers(ctx context.Context, templateID int64) ([]models.TemplateMember, error)
	GroupedWebsites(ctx context.Context) ([]models.TemplateGroup, error)
	Statistics(ctx context.Context) (*models.Statistics, error)

	// CleanupOldRecords deletes unclassified websites whose last update is
	// older than the given number of days and returns the delete count.
	CleanupOldRecords(ctx context.Context, days int) (int64, error)
}
