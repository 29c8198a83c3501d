// internal/features/derive.go

// Package features builds the derived views a similarity comparison runs
// on: the layout sequence, the layout-class set, the breakpoint set and
// the layout-structure trace. All derivations are deterministic and free
// of side effects.
package features

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yout0703/web-collector/internal/models"
)

// structuralTags are the tags that carry page-layout meaning. Only these
// emit layout-sequence tokens; traversal still recurses through the rest.
var structuralTags = map[string]bool{
	"div":     true,
	"section": true,
	"main":    true,
	"header":  true,
	"footer":  true,
	"nav":     true,
	"aside":   true,
}

// layoutKeywords mark a CSS class as layout-related.
var layoutKeywords = []string{
	"container", "wrapper", "header", "footer", "nav", "sidebar",
	"main", "content", "grid", "flex", "row", "col", "section",
}

// layoutTypes maps tags to coarse layout categories for the trace view.
var layoutTypes = map[string]string{
	"header":  "header",
	"footer":  "footer",
	"nav":     "navigation",
	"main":    "main-content",
	"aside":   "sidebar",
	"section": "section",
	"article": "article",
	"div":     "container",
}

var breakpointRe = regexp.MustCompile(`(?i)min-width:\s*(\d+)px`)

// LayoutSequence walks the DOM tree depth-first and emits one
// "{depth}:{tag}" token per structural node, in document order. The root
// is at depth 0. A nil tree yields an empty sequence.
func LayoutSequence(root *models.DOMNode) []string {
	var seq []string
	var walk func(node *models.DOMNode, depth int)
	walk = func(node *models.DOMNode, depth int) {
		if node == nil {
			return
		}
		tag := strings.ToLower(node.Tag)
		if structuralTags[tag] {
			seq = append(seq, fmt.Sprintf("%d:%s", depth, tag))
		}
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return seq
}

// LayoutClasses filters a class list down to the layout-related subset.
// Matching is case-insensitive substring containment against the keyword
// list; the original casing is preserved in the returned set.
func LayoutClasses(classes []string) map[string]bool {
	out := make(map[string]bool)
	for _, cls := range classes {
		lower := strings.ToLower(cls)
		for _, kw := range layoutKeywords {
			if strings.Contains(lower, kw) {
				out[cls] = true
				break
			}
		}
	}
	return out
}

// Breakpoints extracts every min-width pixel value from the media query
// strings, deduplicated, in first-seen order.
func Breakpoints(queries []string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, q := range queries {
		for _, m := range breakpointRe.FindAllStringSubmatch(q, -1) {
			px, err := strconv.Atoi(m[1])
			if err != nil || seen[px] {
				continue
			}
			seen[px] = true
			out = append(out, px)
		}
	}
	return out
}

// LayoutType maps a tag to its coarse layout category.
func LayoutType(tag string) string {
	if t, ok := layoutTypes[strings.ToLower(tag)]; ok {
		return t
	}
	return "other"
}

// TraceEntry is one node of the layout-structure trace: the layout type
// of the immediate ancestor, the node's own layout type and its direct
// child count.
type TraceEntry struct {
	Parent     string
	Type       string
	ChildCount int
}

// LayoutTrace walks the DOM tree depth-first emitting one TraceEntry per
// node. The root's parent type is the sentinel "root".
func LayoutTrace(root *models.DOMNode) []TraceEntry {
	var trace []TraceEntry
	var walk func(node *models.DOMNode, parent string)
	walk = func(node *models.DOMNode, parent string) {
		if node == nil {
			return
		}
		lt := LayoutType(node.Tag)
		trace = append(trace, TraceEntry{
			Parent:     parent,
			Type:       lt,
			ChildCount: len(node.Children),
		})
		for _, child := range node.Children {
			walk(child, lt)
		}
	}
	walk(root, "root")
	return trace
}
