// test/e2e/e2e_test.go

// End-to-end flow over the real HTTP surface: extract features from
// markup, classify through the API, and read the grouping back. Only the
// persistence layer is replaced with an in-memory store.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yout0703/web-collector/internal/api"
	"github.com/yout0703/web-collector/internal/cluster"
	"github.com/yout0703/web-collector/internal/common/config"
	apperrors "github.com/yout0703/web-collector/internal/common/errors"
	"github.com/yout0703/web-collector/internal/common/logger"
	"github.com/yout0703/web-collector/internal/extractor"
	"github.com/yout0703/web-collector/internal/models"
	"github.com/yout0703/web-collector/internal/similarity"
)

// memStore is a mutex-guarded in-memory TemplateStore.
type memStore struct {
	mu        sync.Mutex
	templates []*memTemplate
	websites  []*models.Website
	features  map[int64][]byte
	nextWID   int64
	nextTID   int64
}

type memTemplate struct {
	id       int64
	count    int
	created  time.Time
	features []byte
}

func newMemStore() *memStore {
	return &memStore{
		features: map[int64][]byte{},
		nextWID:  1,
		nextTID:  1,
	}
}

func (m *memStore) ListTemplateRepresentatives(context.Context) ([]models.TemplateRepresentative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reps := make([]models.TemplateRepresentative, 0, len(m.templates))
	for _, t := range m.templates {
		reps = append(reps, models.TemplateRepresentative{TemplateID: t.id, Features: t.features})
	}
	return reps, nil
}

func (m *memStore) FindWebsiteByURL(_ context.Context, url string) (*models.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.websites {
		if w.URL == url {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertWebsite(_ context.Context, url string, fv *models.FeatureVector) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.websites {
		if w.URL == url {
			return 0, apperrors.NewDuplicateURLError(url)
		}
	}
	now := time.Now().UTC()
	w := &models.Website{
		ID:              m.nextWID,
		URL:             url,
		Status:          models.WebsiteStatusAnalyzed,
		FirstAnalyzedAt: now,
		LastUpdatedAt:   now,
	}
	m.nextWID++
	m.websites = append(m.websites, w)
	raw, _ := json.Marshal(fv)
	m.features[w.ID] = raw
	return w.ID, nil
}

func (m *memStore) AssignWebsite(_ context.Context, websiteID, templateID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.websites {
		if w.ID == websiteID {
			tid := templateID
			w.TemplateID = &tid
			w.Status = models.WebsiteStatusClassified
			w.LastUpdatedAt = time.Now().UTC()
		}
	}
	for _, t := range m.templates {
		if t.id == templateID {
			t.count++
		}
	}
	return nil
}

func (m *memStore) CreateTemplateFromWebsite(_ context.Context, websiteID int64, fv *models.FeatureVector) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, _ := json.Marshal(fv)
	t := &memTemplate{
		id:       m.nextTID,
		count:    1,
		created:  time.Now().UTC(),
		features: raw,
	}
	m.nextTID++
	m.templates = append(m.templates, t)
	for _, w := range m.websites {
		if w.ID == websiteID {
			tid := t.id
			w.TemplateID = &tid
			w.Status = models.WebsiteStatusClassified
		}
	}
	return t.id, nil
}

func (m *memStore) TemplateMembers(_ context.Context, templateID int64) ([]models.TemplateMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, t := range m.templates {
		if t.id == templateID {
			found = true
		}
	}
	if !found {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}
	members := []models.TemplateMember{}
	for _, w := range m.websites {
		if w.TemplateID != nil && *w.TemplateID == templateID {
			members = append(members, models.TemplateMember{
				URL:             w.URL,
				FirstAnalyzedAt: w.FirstAnalyzedAt,
				LastUpdatedAt:   w.LastUpdatedAt,
			})
		}
	}
	return members, nil
}

func (m *memStore) GroupedWebsites(ctx context.Context) ([]models.TemplateGroup, error) {
	m.mu.Lock()
	templates := make([]*memTemplate, len(m.templates))
	copy(templates, m.templates)
	m.mu.Unlock()

	groups := []models.TemplateGroup{}
	for _, t := range templates {
		members, err := m.TemplateMembers(ctx, t.id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, models.TemplateGroup{
			TemplateID:   t.id,
			WebsiteCount: t.count,
			CreatedAt:    t.created,
			Websites:     members,
		})
	}
	return groups, nil
}

func (m *memStore) Statistics(context.Context) (*models.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.Statistics{
		TotalWebsites:  len(m.websites),
		TotalTemplates: len(m.templates),
		RecentWebsites: []models.RecentWebsite{},
	}, nil
}

func (m *memStore) CleanupOldRecords(context.Context, int) (int64, error) {
	return 0, nil
}

// bootstrapPage renders a bootstrap-style page; pages sharing the shape
// should land in one template.
func bootstrapPage(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<style>
		@media (min-width: 768px) { .container { width: 750px; } }
		@media (min-width: 1024px) { .container { width: 970px; } }
	</style>
</head>
<body>
	<div class="container">
		<header class="header"><nav class="nav"></nav></header>
		<main class="content"><section>%s</section></main>
		<footer class="footer"></footer>
	</div>
</body>
</html>`, title)
}

const sparsePage = `<!DOCTYPE html>
<html>
<head><style>@media (min-width: 480px) { body { margin: 0; } }</style></head>
<body>
	<table class="legacy-table"><tr><td>old school</td></tr></table>
</body>
</html>`

func newExtractor(t *testing.T) *extractor.Extractor {
	t.Helper()
	return extractor.New(config.ExtractorConfig{
		Timeout:      5,
		UserAgent:    "web-collector-e2e/1.0",
		MaxBodyBytes: 1 << 20,
	}, logger.NewTestLogger(t))
}

func classifyMarkup(t *testing.T, srv http.Handler, url, markup string) *models.Classification {
	t.Helper()

	fv, err := newExtractor(t).FromHTML(url, markup)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]interface{}{"features": fv})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rec.Code, rec.Body.String())

	var result models.Classification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return &result
}

func TestClassifyFlow(t *testing.T) {
	log := logger.NewTestLogger(t)
	st := newMemStore()
	clusterer := cluster.New(st, similarity.NewScorer(), cluster.NewMutexLocker(), 0.4, log)
	srv := api.NewRouter(clusterer, newExtractor(t), nil, log)

	// Two pages cut from the same cloth and one that is not.
	first := classifyMarkup(t, srv, "https://alpha.example", bootstrapPage("Alpha"))
	assert.Equal(t, models.ClassificationCreated, first.Status)

	second := classifyMarkup(t, srv, "https://beta.example", bootstrapPage("Beta"))
	assert.Equal(t, models.ClassificationAssigned, second.Status)
	assert.Equal(t, first.TemplateID, second.TemplateID)

	third := classifyMarkup(t, srv, "https://legacy.example", sparsePage)
	assert.Equal(t, models.ClassificationCreated, third.Status)
	assert.NotEqual(t, first.TemplateID, third.TemplateID)

	// Re-submitting a known URL changes nothing.
	again := classifyMarkup(t, srv, "https://beta.example", bootstrapPage("Beta v2"))
	assert.Equal(t, models.ClassificationDuplicate, again.Status)
	assert.Equal(t, first.TemplateID, again.TemplateID)

	// Stats reflect three websites in two templates.
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalWebsites)
	assert.Equal(t, 2, stats.TotalTemplates)

	// The first template lists both bootstrap-style members.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/templates/%d/websites", first.TemplateID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var members struct {
		Websites []models.TemplateMember `json:"websites"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	require.Len(t, members.Websites, 2)

	// Export carries every classified URL.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://alpha.example")
	assert.Contains(t, rec.Body.String(), "https://legacy.example")
}

func TestClassifyFlow_URLExtraction(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, bootstrapPage("Origin"))
	}))
	defer origin.Close()

	log := logger.NewTestLogger(t)
	st := newMemStore()
	clusterer := cluster.New(st, similarity.NewScorer(), cluster.NewMutexLocker(), 0.4, log)
	srv := api.NewRouter(clusterer, newExtractor(t), nil, log)

	body, _ := json.Marshal(map[string]string{"url": origin.URL})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result models.Classification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.ClassificationCreated, result.Status)
}
