// internal/cluster/clusterer.go

// Package cluster implements the online greedy assignment policy: score a
// new website against every existing template's representative and either
// join the best match or found a new template. Single-pass leader
// clustering — a representative is fixed at creation and never
// recomputed.
package cluster

import (
	"context"
	"time"

	apperrors "github.com/yout0703/web-collector/internal/common/errors"
	"github.com/yout0703/web-collector/internal/common/logger"
	"github.com/yout0703/web-collector/internal/common/metrics"
	"github.com/yout0703/web-collector/internal/models"
	"github.com/yout0703/web-collector/internal/similarity"
	"github.com/yout0703/web-collector/internal/store"
)

// Clusterer owns the classify decision and the read-side queries exposed
// to the calling layer. All collaborators are injected.
type Clusterer struct {
	store     store.TemplateStore
	scorer    *similarity.Scorer
	lock      Locker
	threshold float64
	log       logger.Logger
}

func New(st store.TemplateStore, scorer *similarity.Scorer, lock Locker, threshold float64, log logger.Logger) *Clusterer {
	return &Clusterer{
		store:     st,
		scorer:    scorer,
		lock:      lock,
		threshold: threshold,
		log:       log.WithFields(map[string]interface{}{"component": "clusterer"}),
	}
}

// Classify runs the full scan-decide-commit sequence for one feature
// vector. The sequence is a check-then-act and runs under the lock as one
// atomic unit with respect to other classifications.
func (c *Clusterer) Classify(ctx context.Context, fv *models.FeatureVector) (*models.Classification, error) {
	if fv == nil {
		return nil, apperrors.NewValidationFailedError("feature vector is nil")
	}
	if err := fv.Validate(); err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	fv.Normalize()

	canonical, err := models.CanonicalURL(fv.URL)
	if err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	fv.URL = canonical

	release, err := c.lock.Acquire(ctx)
	if err != nil {
		return nil, apperrors.NewLockNotAcquiredError(err)
	}
	defer release()

	// Duplicate-URL idempotence: a second classification of a known URL
	// returns the first assignment unchanged.
	existing, err := c.store.FindWebsiteByURL(ctx, canonical)
	if err != nil {
		return nil, err
	}

	var websiteID int64
	switch {
	case existing != nil && existing.TemplateID != nil:
		c.log.Info("duplicate url, returning existing assignment", map[string]interface{}{
			"url":        canonical,
			"templateId": *existing.TemplateID,
		})
		metrics.ClassificationsTotal.WithLabelValues(models.ClassificationDuplicate).Inc()
		return &models.Classification{
			Status:     models.ClassificationDuplicate,
			WebsiteID:  existing.ID,
			TemplateID: *existing.TemplateID,
		}, nil
	case existing != nil:
		// A previous attempt inserted the record but failed before the
		// commit; resume with the existing row.
		websiteID = existing.ID
	default:
		websiteID, err = c.store.InsertWebsite(ctx, canonical, fv)
		if err != nil {
			// Lost the insert race to a concurrent writer of the same URL:
			// resolve to that writer's assignment.
			if apperrors.IsCode(err, apperrors.ErrCodeDuplicateURL) {
				return c.resolveDuplicate(ctx, canonical)
			}
			return nil, err
		}
	}

	bestID, bestScore, err := c.scanTemplates(ctx, fv)
	if err != nil {
		return nil, err
	}

	if bestID != 0 && bestScore >= c.threshold {
		if err := c.store.AssignWebsite(ctx, websiteID, bestID); err != nil {
			return nil, err
		}
		c.log.Info("website assigned to template", map[string]interface{}{
			"url":        canonical,
			"templateId": bestID,
			"similarity": bestScore,
		})
		metrics.ClassificationsTotal.WithLabelValues(models.ClassificationAssigned).Inc()
		return &models.Classification{
			Status:     models.ClassificationAssigned,
			WebsiteID:  websiteID,
			TemplateID: bestID,
			Similarity: bestScore,
		}, nil
	}

	templateID, err := c.store.CreateTemplateFromWebsite(ctx, websiteID, fv)
	if err != nil {
		return nil, err
	}
	c.log.Info("no similar template, created new", map[string]interface{}{
		"url":        canonical,
		"templateId": templateID,
		"bestScore":  bestScore,
	})
	metrics.ClassificationsTotal.WithLabelValues(models.ClassificationCreated).Inc()
	metrics.TemplatesCreated.Inc()
	return &models.Classification{
		Status:     models.ClassificationCreated,
		WebsiteID:  websiteID,
		TemplateID: templateID,
		Similarity: bestScore,
	}, nil
}

// scanTemplates scores the candidate against every representative in
// creation order, tracking the maximum with strict `>` so the earliest
// template wins ties. A representative that fails to decode scores 0 and
// is logged, never aborting the scan. A failure to list the
// representatives at all aborts the classification: deciding against an
// empty list would mint a duplicate template for a site that matches an
// existing one.
func (c *Clusterer) scanTemplates(ctx context.Context, fv *models.FeatureVector) (bestID int64, bestScore float64, err error) {
	start := time.Now()
	defer func() {
		metrics.TemplateScanDuration.Observe(time.Since(start).Seconds())
	}()

	reps, err := c.store.ListTemplateRepresentatives(ctx)
	if err != nil {
		c.log.WithError(err).Error("listing representatives failed", nil)
		return 0, 0, err
	}

	for _, rep := range reps {
		repFV, err := models.DecodeFeatureVector(rep.Features)
		if err != nil {
			c.log.WithError(apperrors.NewMalformedRepresentativeError(rep.TemplateID, err)).
				Error("skipping malformed representative", map[string]interface{}{
					"templateId": rep.TemplateID,
				})
			metrics.MalformedRepresentatives.Inc()
			continue
		}

		bd := c.scorer.Compare(fv, repFV)
		c.log.Debug("scored candidate against template", map[string]interface{}{
			"templateId": rep.TemplateID,
			"dom":        bd.DOM,
			"css":        bd.CSS,
			"responsive": bd.Responsive,
			"layout":     bd.Layout,
			"total":      bd.Total,
		})
		if bd.Total > bestScore {
			bestScore = bd.Total
			bestID = rep.TemplateID
		}
	}

	if len(reps) > 0 {
		metrics.SimilarityScore.Observe(bestScore)
	}
	return bestID, bestScore, nil
}

// resolveDuplicate handles the second writer in a same-URL insert race.
func (c *Clusterer) resolveDuplicate(ctx context.Context, url string) (*models.Classification, error) {
	existing, err := c.store.FindWebsiteByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.TemplateID == nil {
		// Record exists but has no assignment yet: the first writer is
		// mid-flight. Report the conflict instead of double-committing.
		return nil, apperrors.NewDuplicateURLError(url)
	}
	metrics.ClassificationsTotal.WithLabelValues(models.ClassificationDuplicate).Inc()
	return &models.Classification{
		Status:     models.ClassificationDuplicate,
		WebsiteID:  existing.ID,
		TemplateID: *existing.TemplateID,
	}, nil
}

// TemplateMembers lists the websites of one template.
func (c *Clusterer) TemplateMembers(ctx context.Context, templateID int64) ([]models.TemplateMember, error) {
	return c.store.TemplateMembers(ctx, templateID)
}

// Statistics returns collection totals and recent activity.
func (c *Clusterer) Statistics(ctx context.Context) (*models.Statistics, error) {
	return c.store.Statistics(ctx)
}

// GroupedWebsites returns every template with its members, for the
// export and listing views.
func (c *Clusterer) GroupedWebsites(ctx context.Context) ([]models.TemplateGroup, error) {
	return c.store.GroupedWebsites(ctx)
}

// CleanupOldRecords removes stale unclassified websites.
func (c *Clusterer) CleanupOldRecords(ctx context.Context, days int) (int64, error) {
	return c.store.CleanupOldRecords(ctx, days)
}
