// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/yout0703/web-collector/internal/common/errors"
	"github.com/yout0703/web-collector/internal/common/logger"
	"github.com/yout0703/web-collector/internal/common/metrics"
	"github.com/yout0703/web-collector/internal/common/observability"
	"github.com/yout0703/web-collector/internal/models"
	"github.com/yout0703/web-collector/internal/report"
)

// Classifier is the engine surface the API consumes.
type Classifier interface {
	Classify(ctx context.Context, fv *models.FeatureVector) (*models.Classification, error)
	TemplateMembers(ctx context.Context, templateID int64) ([]models.TemplateMember, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
	GroupedWebsites(ctx context.Context) ([]models.TemplateGroup, error)
}

// Extractor turns a URL into a feature vector.
type Extractor interface {
	Extract(ctx context.Context, url string) (*models.FeatureVector, error)
}

type Handler struct {
	classifier Classifier
	extractor  Extractor
	obs        *observability.Observability
	log        logger.Logger
}

func NewHandler(classifier Classifier, extractor Extractor, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		classifier: classifier,
		extractor:  extractor,
		obs:        obs,
		log:        log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

type classifyRequest struct {
	URL      string                `json:"url,omitempty"`
	Features *models.FeatureVector `json:"features,omitempty"`
}

// Classify handles POST /api/v1/classify. The body carries either a full
// feature vector or a bare url, which is extracted first.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		writeError(w, apperrors.NewValidationFailedError("request body unreadable"))
		return
	}
	if err := validateClassifyPayload(body); err != nil {
		writeError(w, err)
		return
	}

	var req classifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperrors.NewValidationFailedError(err.Error()))
		return
	}

	fv := req.Features
	if fv == nil {
		fv, err = h.extractor.Extract(r.Context(), req.URL)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := h.classifier.Classify(r.Context(), fv)
	if err != nil {
		h.log.WithError(err).Error("classification failed", map[string]interface{}{
			"url": fv.URL,
		})
		metrics.ClassificationErrors.WithLabelValues(string(apperrors.CodeOf(err))).Inc()
		h.obs.RecordClassificationDuration(r.Context(), time.Since(start), "error")
		writeError(w, err)
		return
	}

	h.obs.RecordClassification(r.Context(), result.Status)
	h.obs.RecordClassificationDuration(r.Context(), time.Since(start), result.Status)

	status := http.StatusOK
	if result.Status == models.ClassificationCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// TemplateMembers handles GET /api/v1/templates/{id}/websites.
func (h *Handler) TemplateMembers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, apperrors.NewValidationFailedError("template id must be an integer"))
		return
	}

	members, err := h.classifier.TemplateMembers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templateId": id,
		"websites":   members,
	})
}

// Statistics handles GET /api/v1/stats.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.classifier.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Export handles GET /api/v1/export: the grouped listing as a text file.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	groups, err := h.classifier.GroupedWebsites(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="website_templates.txt"`)
	_, _ = io.WriteString(w, report.RenderText(groups, time.Now()))
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Website templates</title></head>
<body>
<h1>Website templates</h1>
{{range .}}
<h2>Template #{{.TemplateID}} ({{.WebsiteCount}} websites)</h2>
<ul>
{{range .Websites}}<li><a href="{{.URL}}">{{.URL}}</a></li>
{{end}}</ul>
{{end}}
</body>
</html>`))

// Index handles GET /: websites grouped by template as an HTML page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	groups, err := h.classifier.GroupedWebsites(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, groups); err != nil {
		h.log.WithError(err).Error("render index failed", nil)
	}
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}
