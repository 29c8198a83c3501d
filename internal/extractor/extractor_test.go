package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yout0703/web-collector/internal/common/config"
	apperrors "github.com/yout0703/web-collector/internal/common/errors"
	"github.com/yout0703/web-collector/internal/common/logger"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: "Open Sans", sans-serif; color: #333; }
		.container { background: rgb(255, 255, 255); }
		@media (min-width: 768px) { .container { width: 750px; } }
		@media (min-width: 1024px) { .container { width: 970px; } }
	</style>
	<script src="/js/jquery-3.6.0.min.js"></script>
	<script src="https://cdn.example.com/bootstrap.bundle.min.js"></script>
</head>
<body>
	<div class="container">
		<header class="header-bar">
			<nav class="nav"><a href="/about">About</a></nav>
		</header>
		<main class="content">
			<section class="hero" style="color: #ff0000">Hello</section>
		</main>
		<footer class="footer"></footer>
	</div>
	<img src="/logo.png">
</body>
</html>`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return New(config.ExtractorConfig{
		Timeout:      5,
		UserAgent:    "web-collector-test/1.0",
		MaxBodyBytes: 1 << 20,
	}, logger.NewTestLogger(t))
}

func TestFromHTML(t *testing.T) {
	e := newTestExtractor(t)

	fv, err := e.FromHTML("https://example.com", samplePage)
	require.NoError(t, err)

	require.NotNil(t, fv.DOMStructure)
	assert.Equal(t, "body", fv.DOMStructure.Tag)
	require.Len(t, fv.DOMStructure.Children, 2) // div, img
	div := fv.DOMStructure.Children[0]
	assert.Equal(t, "div", div.Tag)
	require.Len(t, div.Children, 3)
	assert.Equal(t, "header", div.Children[0].Tag)
	assert.Equal(t, "main", div.Children[1].Tag)
	assert.Equal(t, "footer", div.Children[2].Tag)

	assert.ElementsMatch(t,
		[]string{"container", "header-bar", "nav", "content", "hero", "footer"},
		fv.CSSClasses)

	assert.ElementsMatch(t, []string{"jQuery", "Bootstrap"}, fv.JSLibraries)

	assert.Equal(t, "width=device-width, initial-scale=1", fv.ResponsiveFeatures.ViewportMeta)
	assert.Equal(t, []string{"(min-width: 768px)", "(min-width: 1024px)"},
		fv.ResponsiveFeatures.MediaQueries)

	assert.Contains(t, fv.ColorScheme, "#333")
	assert.Contains(t, fv.ColorScheme, "rgb(255, 255, 255)")
	assert.Contains(t, fv.ColorScheme, "#ff0000")
	assert.Contains(t, fv.Fonts, `"Open Sans", sans-serif`)

	// 2 scripts + 1 img; the page has no link tags.
	assert.Equal(t, 3.0, fv.PerformanceMetrics["resourceCount"])
}

func TestFromHTML_EmptyMarkup(t *testing.T) {
	e := newTestExtractor(t)

	fv, err := e.FromHTML("https://example.com", "")
	require.NoError(t, err)

	// goquery synthesizes an empty body; no features beyond that.
	assert.Empty(t, fv.CSSClasses)
	assert.Empty(t, fv.JSLibraries)
	assert.Empty(t, fv.ResponsiveFeatures.MediaQueries)
}

func TestExtract(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	e := newTestExtractor(t)
	fv, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "web-collector-test/1.0", gotUA)
	assert.NotEmpty(t, fv.CSSClasses)
	assert.Contains(t, fv.PerformanceMetrics, "fetchTime")
	assert.Contains(t, fv.PerformanceMetrics, "htmlBytes")
	// Extract stores the canonical identity, not the full request URL.
	assert.Equal(t, srv.URL, fv.URL)
}

func TestExtract_Non2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	e := newTestExtractor(t)
	_, err := e.Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExtractionFailed))
}

func TestExtract_InvalidURL(t *testing.T) {
	e := newTestExtractor(t)
	_, err := e.Extract(context.Background(), "https://")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
}

func TestExtract_TruncatesOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>"))
		for i := 0; i < 10000; i++ {
			w.Write([]byte(`<div class="filler"></div>`))
		}
		w.Write([]byte("</body></html>"))
	}))
	defer srv.Close()

	e := New(config.ExtractorConfig{
		Timeout:      5,
		UserAgent:    "web-collector-test/1.0",
		MaxBodyBytes: 1024,
	}, logger.NewTestLogger(t))

	fv, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1024.0, fv.PerformanceMetrics["htmlBytes"])
}
