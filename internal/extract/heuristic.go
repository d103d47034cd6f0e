package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/courtfetch/internal/courtcfg"
	"github.com/raysh454/courtfetch/internal/utils"
)

// Heuristic extracts case data from generic markup: two-or-more-cell table rows
// are read as label/value pairs and every anchor pointing at a document becomes
// an order. It cannot attribute dates to links, so order dates stay empty.
type Heuristic struct {
	baseURL    string
	extensions []string
}

func NewHeuristic(court *courtcfg.CourtConfig) *Heuristic {
	h := &Heuristic{extensions: courtcfg.DefaultDocumentExtensions}
	if court != nil {
		h.baseURL = court.BaseURL
		if len(court.DocumentExtensions) > 0 {
			h.extensions = court.DocumentExtensions
		}
	}
	return h
}

type rowField int

const (
	fieldNone rowField = iota
	fieldPetitioner
	fieldRespondent
	fieldNextHearing
	fieldFiling
)

// classifyLabel matches the lower-cased first cell. "next"/"hearing" is checked
// before the generic "date" so that "Next Hearing Date" is not read as a filing date.
func classifyLabel(label string) rowField {
	switch {
	case strings.Contains(label, "petitioner"):
		return fieldPetitioner
	case strings.Contains(label, "respondent"):
		return fieldRespondent
	case strings.Contains(label, "next") || strings.Contains(label, "hearing"):
		return fieldNextHearing
	case strings.Contains(label, "filing") || strings.Contains(label, "date"):
		return fieldFiling
	}
	return fieldNone
}

func (h *Heuristic) Extract(page []byte) *CaseRecord {
	rec := newRecord()
	doc := parseDocument(page)

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return rec
	}
	rec.Found = true

	tables.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(nodeText(cells.Eq(0)))
		value := nodeText(cells.Eq(1))

		switch classifyLabel(label) {
		case fieldPetitioner:
			rec.Parties.Petitioner = value
		case fieldRespondent:
			rec.Parties.Respondent = value
		case fieldNextHearing:
			rec.NextHearingDate = value
		case fieldFiling:
			if rec.FilingDate == "" {
				rec.FilingDate = value
			}
		}
	})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !utils.HasExtension(href, h.extensions) {
			return
		}
		abs, ok := documentLink(h.baseURL, href)
		if !ok {
			return
		}
		title := nodeText(a)
		if title == "" {
			title = DefaultOrderTitle
		}
		rec.Orders = append(rec.Orders, OrderLink{Title: title, PDFURL: abs})
	})

	return rec
}
