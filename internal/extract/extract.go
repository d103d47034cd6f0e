// Package extract maps a case-status result page into a CaseRecord.
//
// Two strategies share one interface: Declarative resolves configured CSS
// selectors, Heuristic scans key/value table rows and document links. New picks
// one from the court configuration. Neither strategy fails on malformed markup;
// unresolvable fields are left empty.
package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/courtfetch/internal/courtcfg"
	"github.com/raysh454/courtfetch/internal/utils"
	"golang.org/x/net/html"
)

// DefaultOrderTitle is used for document links without text.
const DefaultOrderTitle = "Order/Judgment"

// Extractor turns raw page markup into a CaseRecord. Implementations are pure:
// identical input yields a structurally identical record.
type Extractor interface {
	Extract(page []byte) *CaseRecord
}

// New returns the Declarative strategy when the court configures any result-page
// selector, and the Heuristic strategy otherwise.
func New(court *courtcfg.CourtConfig) Extractor {
	if court != nil && court.Selectors.Declarative() {
		return NewDeclarative(court)
	}
	return NewHeuristic(court)
}

// Mode names the strategy New would pick; used for logging.
func Mode(court *courtcfg.CourtConfig) string {
	if court != nil && court.Selectors.Declarative() {
		return "declarative"
	}
	return "heuristic"
}

func parseDocument(page []byte) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		// html.Parse only fails on reader errors; fall back to an empty document
		doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// nodeText concatenates descendant text nodes, separating element boundaries
// with spaces, and collapses whitespace.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(n, &b)
	}
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(b.String(), " "))
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
		if n.Data == "br" {
			b.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			b.WriteByte(' ')
		}
		collectText(c, b)
	}
}

// documentLink resolves an anchor href against the court base URL.
func documentLink(baseURL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	abs, err := utils.Absolutize(baseURL, href)
	if err != nil {
		return "", false
	}
	return abs, true
}
