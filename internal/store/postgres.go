// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/yout0703/web-collector/internal/common/errors"
	"github.com/yout0703/web-collector/internal/common/logger"
	"github.com/yout0703/web-collector/internal/models"
)

// pq error code for unique constraint violations.
const pgUniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id               BIGSERIAL PRIMARY KEY,
	created_at       TIMESTAMPTZ NOT NULL,
	website_count    INTEGER NOT NULL DEFAULT 0,
	feature_summary  JSONB NOT NULL,
	last_updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS websites (
	id                BIGSERIAL PRIMARY KEY,
	url               TEXT UNIQUE NOT NULL,
	template_id       BIGINT REFERENCES templates (id),
	first_analyzed_at TIMESTAMPTZ NOT NULL,
	last_updated_at   TIMESTAMPTZ NOT NULL,
	status            TEXT NOT NULL,
	features          JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_websites_template_id ON websites (template_id);
CREATE INDEX IF NOT EXISTS idx_websites_last_updated ON websites (last_updated_at);
`

// PostgresStore implements TemplateStore on PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// InitSchema creates the tables when they do not exist yet.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewPersistenceFailureError("init schema", err)
	}
	return nil
}

func (s *PostgresStore) ListTemplateRepresentatives(ctx context.Context) ([]models.TemplateRepresentative, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, feature_summary FROM templates ORDER BY id ASC`)
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("list representatives", err)
	}
	defer rows.Close()

	var reps []models.TemplateRepresentative
	for rows.Next() {
		var rep models.TemplateRepresentative
		var raw []byte
		if err := rows.Scan(&rep.TemplateID, &raw); err != nil {
			return nil, apperrors.NewPersistenceFailureError("scan representative", err)
		}
		rep.Features = json.RawMessage(raw)
		reps = append(reps, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailureError("list representatives", err)
	}
	return reps, nil
}

func (s *PostgresStore) FindWebsiteByURL(ctx context.Context, url string) (*models.Website, error) {
	var (
		w          models.Website
		templateID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, template_id, status, first_analyzed_at, last_updated_at
		 FROM websites WHERE url = $1`, url).
		Scan(&w.ID, &w.URL, &templateID, &w.Status, &w.FirstAnalyzedAt, &w.LastUpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("find website", err)
	}
	if templateID.Valid {
		w.TemplateID = &templateID.Int64
	}
	return &w, nil
}

func (s *PostgresStore) InsertWebsite(ctx context.Context, url string, features *models.FeatureVector) (int64, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return 0, apperrors.NewPersistenceFailureError("serialize features", err)
	}

	now := time.Now().UTC()
	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO websites (url, first_analyzed_at, last_updated_at, status, features)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		url, now, now, models.WebsiteStatusAnalyzed, payload).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pgUniqueViolation {
			return 0, apperrors.NewDuplicateURLError(url)
		}
		return 0, apperrors.NewPersistenceFailureError("insert website", err)
	}
	return id, nil
}

func (s *PostgresStore) AssignWebsite(ctx context.Context, websiteID, templateID int64) error {
	return s.inTx(ctx, "assign website", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		res, err := tx.ExecContext(ctx,
			`UPDATE websites SET template_id = $1, status = $2, last_updated_at = $3 WHERE id = $4`,
			templateID, models.WebsiteStatusClassified, now, websiteID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("website %d not found", websiteID)
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE templates SET website_count = website_count + 1, last_updated_at = $1 WHERE id = $2`,
			now, templateID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("template %d not found", templateID)
		}
		return nil
	})
}

func (s *PostgresStore) CreateTemplateFromWebsite(ctx context.Context, websiteID int64, features *models.FeatureVector) (int64, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return 0, apperrors.NewPersistenceFailureError("serialize features", err)
	}

	var templateID int64
	err = s.inTx(ctx, "create template", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		if err := tx.QueryRowContext(ctx,
			`INSERT INTO templates (created_at, website_count, feature_summary, last_updated_at)
			 VALUES ($1, 1, $2, $3) RETURNING id`,
			now, payload, now).Scan(&templateID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE websites SET template_id = $1, status = $2, last_updated_at = $3 WHERE id = $4`,
			templateID, models.WebsiteStatusClassified, now, websiteID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("website %d not found", websiteID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return templateID, nil
}

func (s *PostgresStore) TemplateMembers(ctx context.Context, templateID int64) ([]models.TemplateMember, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM templates WHERE id = $1)`, templateID).Scan(&exists); err != nil {
		return nil, apperrors.NewPersistenceFailureError("check template", err)
	}
	if !exists {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url, first_analyzed_at, last_updated_at
		 FROM websites WHERE template_id = $1 ORDER BY first_analyzed_at ASC`, templateID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("list members", err)
	}
	defer rows.Close()

	members := []models.TemplateMember{}
	for rows.Next() {
		var m models.TemplateMember
		if err := rows.Scan(&m.URL, &m.FirstAnalyzedAt, &m.LastUpdatedAt); err != nil {
			return nil, apperrors.NewPersistenceFailureError("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailureError("list members", err)
	}
	return members, nil
}

func (s *PostgresStore) GroupedWebsites(ctx context.Context) ([]models.TemplateGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.website_count, t.created_at,
		        w.url, w.first_analyzed_at, w.last_updated_at
		 FROM templates t
		 LEFT JOIN websites w ON w.template_id = t.id
		 ORDER BY t.id ASC, w.first_analyzed_at ASC`)
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("group websites", err)
	}
	defer rows.Close()

	groups := []models.TemplateGroup{}
	for rows.Next() {
		var (
			id              int64
			count           int
			createdAt       time.Time
			url             sql.NullString
			firstAnalyzedAt sql.NullTime
			lastUpdatedAt   sql.NullTime
		)
		if err := rows.Scan(&id, &count, &createdAt, &url, &firstAnalyzedAt, &lastUpdatedAt); err != nil {
			return nil, apperrors.NewPersistenceFailureError("scan group", err)
		}

		if len(groups) == 0 || groups[len(groups)-1].TemplateID != id {
			groups = append(groups, models.TemplateGroup{
				TemplateID:   id,
				WebsiteCount: count,
				CreatedAt:    createdAt,
				Websites:     []models.TemplateMember{},
			})
		}
		if url.Valid {
			g := &groups[len(groups)-1]
			g.Websites = append(g.Websites, models.TemplateMember{
				URL:             url.String,
				FirstAnalyzedAt: firstAnalyzedAt.Time,
				LastUpdatedAt:   lastUpdatedAt.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailureError("group websites", err)
	}
	return groups, nil
}

func (s *PostgresStore) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{RecentWebsites: []models.RecentWebsite{}}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM websites`).Scan(&stats.TotalWebsites); err != nil {
		return nil, apperrors.NewPersistenceFailureError("count websites", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM templates`).Scan(&stats.TotalTemplates); err != nil {
		return nil, apperrors.NewPersistenceFailureError("count templates", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url, last_updated_at FROM websites ORDER BY last_updated_at DESC LIMIT 5`)
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("recent websites", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.RecentWebsite
		if err := rows.Scan(&r.URL, &r.LastUpdatedAt); err != nil {
			return nil, apperrors.NewPersistenceFailureError("scan recent website", err)
		}
		stats.RecentWebsites = append(stats.RecentWebsites, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailureError("recent websites", err)
	}
	return stats, nil
}

// CleanupOldRecords only touches unclassified websites: removing a
// classified member would break the website_count invariant.
func (s *PostgresStore) CleanupOldRecords(ctx context.Context, days int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM websites
		 WHERE template_id IS NULL AND last_updated_at < $1`,
		time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return 0, apperrors.NewPersistenceFailureError("cleanup", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *PostgresStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceFailureError(op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("rollback failed", map[string]interface{}{
				"operation": op,
				"error":     rbErr,
			})
		}
		return apperrors.NewPersistenceFailureError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceFailureError(op, err)
	}
	return nil
}
