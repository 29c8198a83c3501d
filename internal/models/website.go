// internal/models/website.go
package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Website statuses. A website starts as "analyzed" and becomes
// "classified" exactly once, when a template assignment is committed.
const (
	WebsiteStatusAnalyzed   = "analyzed"
	WebsiteStatusClassified = "classified"
)

// DOMNode is one node of the rooted, ordered DOM tree captured for a site.
type DOMNode struct {
	Tag      string     `json:"tag"`
	Children []*DOMNode `json:"children,omitempty"`
}

// ResponsiveFeatures holds the responsive-design signals of a page.
type ResponsiveFeatures struct {
	ViewportMeta string   `json:"viewportMeta,omitempty"`
	MediaQueries []string `json:"mediaQueries"`
}

// FeatureVector is the canonical structural/visual description of one
// analyzed website. Feature slices may be empty but are never nil after
// Normalize.
type FeatureVector struct {
	URL                string             `json:"url"`
	DOMStructure       *DOMNode           `json:"domStructure"`
	CSSClasses         []string           `json:"cssClasses"`
	JSLibraries        []string           `json:"jsLibraries"`
	ResponsiveFeatures ResponsiveFeatures `json:"responsiveFeatures"`
	ColorScheme        []string           `json:"colorScheme"`
	Fonts              []string           `json:"fonts"`
	PerformanceMetrics map[string]float64 `json:"performanceMetrics"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Normalize replaces nil collections with empty ones so downstream code
// can range over them without nil checks.
func (f *FeatureVector) Normalize() {
	if f.CSSClasses == nil {
		f.CSSClasses = []string{}
	}
	if f.JSLibraries == nil {
		f.JSLibraries = []string{}
	}
	if f.ResponsiveFeatures.MediaQueries == nil {
		f.ResponsiveFeatures.MediaQueries = []string{}
	}
	if f.ColorScheme == nil {
		f.ColorScheme = []string{}
	}
	if f.Fonts == nil {
		f.Fonts = []string{}
	}
	if f.PerformanceMetrics == nil {
		f.PerformanceMetrics = map[string]float64{}
	}
}

// Validate checks the fields required before a vector can be classified.
func (f *FeatureVector) Validate() error {
	if strings.TrimSpace(f.URL) == "" {
		return fmt.Errorf("feature vector has no url")
	}
	return nil
}

// DecodeFeatureVector parses a stored feature payload. A decode failure
// is the "malformed representative" case handled by the clusterer.
func DecodeFeatureVector(raw []byte) (*FeatureVector, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty feature payload")
	}
	var fv FeatureVector
	if err := json.Unmarshal(raw, &fv); err != nil {
		return nil, fmt.Errorf("decode feature vector: %w", err)
	}
	fv.Normalize()
	return &fv, nil
}

// CanonicalURL reduces a URL to scheme+host: the identity of a website.
// Path, query and fragment are stripped, the host is lowercased.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + strings.TrimSpace(raw))
		if err != nil {
			return "", fmt.Errorf("parse url %q: %w", raw, err)
		}
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return u.Scheme + "://" + strings.ToLower(u.Host), nil
}

// Website links one analyzed URL to at most one template.
type Website struct {
	ID              int64      `json:"id"`
	URL             string     `json:"url"`
	TemplateID      *int64     `json:"templateId,omitempty"`
	Status          string     `json:"status"`
	FirstAnalyzedAt time.Time  `json:"firstAnalyzedAt"`
	LastUpdatedAt   time.Time  `json:"lastUpdatedAt"`
}
