// internal/extractor/extractor.go

// Package extractor builds a FeatureVector from a site's homepage HTML.
// It works on the static document: DOM shape, class names, script-based
// library detection, inline stylesheet signals. Driving a real browser is
// out of scope; an extraction failure surfaces as "no vector available",
// never as a partially populated vector.
package extractor

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/yout0703/web-collector/internal/common/config"
	apperrors "github.com/yout0703/web-collector/internal/common/errors"
	commonhttp "github.com/yout0703/web-collector/internal/common/http"
	"github.com/yout0703/web-collector/internal/common/logger"
	"github.com/yout0703/web-collector/internal/models"
)

var (
	mediaQueryRe = regexp.MustCompile(`@media([^{]+)\{`)
	fontFamilyRe = regexp.MustCompile(`(?i)font-family\s*:\s*([^;}{]+)`)
	colorRe      = regexp.MustCompile(`(?i)#[0-9a-f]{3,8}\b|rgba?\([^)]*\)`)
)

// script src fragments that identify well-known frontend libraries.
var libraryHints = []struct {
	fragment string
	name     string
}{
	{"jquery", "jQuery"},
	{"react", "React"},
	{"vue", "Vue"},
	{"angular", "Angular"},
	{"bootstrap", "Bootstrap"},
	{"wp-includes", "WordPress"},
	{"_next/", "Next.js"},
}

// Extractor fetches and analyzes homepages.
type Extractor struct {
	client       *commonhttp.Client
	maxBodyBytes int64
	log          logger.Logger
}

func New(cfg config.ExtractorConfig, log logger.Logger) *Extractor {
	return &Extractor{
		client:       commonhttp.NewClient(time.Duration(cfg.Timeout)*time.Second, cfg.UserAgent),
		maxBodyBytes: cfg.MaxBodyBytes,
		log:          log.WithFields(map[string]interface{}{"component": "extractor"}),
	}
}

// Extract fetches the URL and derives its feature vector.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*models.FeatureVector, error) {
	canonical, err := models.CanonicalURL(rawURL)
	if err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}

	start := time.Now()
	resp, err := e.client.Get(ctx, canonical)
	if err != nil {
		return nil, apperrors.NewExtractionFailedError(canonical, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewExtractionFailedError(canonical,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewExtractionFailedError(canonical, err)
	}
	fetchMs := float64(time.Since(start).Milliseconds())

	fv, err := e.FromHTML(canonical, string(body))
	if err != nil {
		return nil, err
	}
	fv.PerformanceMetrics["fetchTime"] = fetchMs
	fv.PerformanceMetrics["htmlBytes"] = float64(len(body))

	e.log.Info("extracted features", map[string]interface{}{
		"url":          canonical,
		"cssClasses":   len(fv.CSSClasses),
		"jsLibraries":  len(fv.JSLibraries),
		"mediaQueries": len(fv.ResponsiveFeatures.MediaQueries),
		"fetchMs":      fetchMs,
	})
	return fv, nil
}

// FromHTML derives a feature vector from already-fetched markup.
func (e *Extractor) FromHTML(url, markup string) (*models.FeatureVector, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, apperrors.NewExtractionFailedError(url, err)
	}

	now := time.Now().UTC()
	fv := &models.FeatureVector{
		URL:          url,
		DOMStructure: domTree(doc),
		CSSClasses:   cssClasses(doc),
		JSLibraries:  jsLibraries(doc),
		ResponsiveFeatures: models.ResponsiveFeatures{
			ViewportMeta: viewportMeta(doc),
			MediaQueries: mediaQueries(doc),
		},
		ColorScheme:        colorScheme(doc),
		Fonts:              fonts(doc),
		PerformanceMetrics: map[string]float64{"resourceCount": resourceCount(doc)},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	fv.Normalize()
	return fv, nil
}

// domTree converts the parsed body into the DOMNode shape, elements only.
func domTree(doc *goquery.Document) *models.DOMNode {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return nil
	}
	return nodeFromHTML(body.Nodes[0])
}

func nodeFromHTML(n *html.Node) *models.DOMNode {
	node := &models.DOMNode{Tag: strings.ToLower(n.Data)}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			node.Children = append(node.Children, nodeFromHTML(c))
		}
	}
	return node
}

func cssClasses(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var out []string
	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		cls, _ := sel.Attr("class")
		for _, c := range strings.Fields(cls) {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	})
	return out
}

func jsLibraries(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var out []string
	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		lower := strings.ToLower(src)
		for _, hint := range libraryHints {
			if strings.Contains(lower, hint.fragment) && !seen[hint.name] {
				seen[hint.name] = true
				out = append(out, hint.name)
			}
		}
	})
	return out
}

func viewportMeta(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[name="viewport"]`).First().Attr("content")
	return content
}

func mediaQueries(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var out []string
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		for _, m := range mediaQueryRe.FindAllStringSubmatch(sel.Text(), -1) {
			cond := strings.TrimSpace(m[1])
			if cond != "" && !seen[cond] {
				seen[cond] = true
				out = append(out, cond)
			}
		}
	})
	return out
}

func colorScheme(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var out []string
	add := func(text string) {
		for _, c := range colorRe.FindAllString(text, -1) {
			c = strings.ToLower(c)
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})
	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		add(style)
	})
	return out
}

func fonts(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var out []string
	add := func(text string) {
		for _, m := range fontFamilyRe.FindAllStringSubmatch(text, -1) {
			family := strings.TrimSpace(m[1])
			if family != "" && !seen[family] {
				seen[family] = true
				out = append(out, family)
			}
		}
	}
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})
	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		add(style)
	})
	return out
}

func resourceCount(doc *goquery.Document) float64 {
	return float64(doc.Find("script[src], link[href], img[src]").Length())
}
