package extract

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/courtfetch/internal/courtcfg"
)

// Declarative resolves configured selectors. A missing selector or a selector
// that matches nothing leaves the field empty.
type Declarative struct {
	sel     courtcfg.Selectors
	baseURL string
}

func NewDeclarative(court *courtcfg.CourtConfig) *Declarative {
	return &Declarative{sel: court.Selectors, baseURL: court.BaseURL}
}

// datePattern recognizes dd/mm/yyyy style cells (also with - or .) for order rows
// without a configured date selector.
var datePattern = regexp.MustCompile(`\b\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}\b`)

func (d *Declarative) Extract(page []byte) *CaseRecord {
	rec := newRecord()
	doc := parseDocument(page)

	rec.Parties.Petitioner = firstText(doc.Selection, d.sel.Petitioner)
	rec.Parties.Respondent = firstText(doc.Selection, d.sel.Respondent)
	rec.FilingDate = firstText(doc.Selection, d.sel.FilingDate)
	rec.NextHearingDate = firstText(doc.Selection, d.sel.NextHearingDate)

	if d.sel.OrdersTableRows != "" && d.sel.OrderLink != "" {
		find(doc.Selection, d.sel.OrdersTableRows).Each(func(_ int, row *goquery.Selection) {
			link := find(row, d.sel.OrderLink).First()
			if link.Length() == 0 {
				return
			}
			href, _ := link.Attr("href")
			abs, ok := documentLink(d.baseURL, href)
			if !ok {
				return
			}
			title := nodeText(link)
			if title == "" {
				title = DefaultOrderTitle
			}
			rec.Orders = append(rec.Orders, OrderLink{
				Date:   d.rowDate(row),
				Title:  title,
				PDFURL: abs,
			})
		})
	}

	markerFound := d.sel.ResultMarker != "" && find(doc.Selection, d.sel.ResultMarker).Length() > 0
	rec.Found = markerFound ||
		rec.Parties.Petitioner != "" || rec.Parties.Respondent != "" ||
		rec.FilingDate != "" || rec.NextHearingDate != "" ||
		len(rec.Orders) > 0

	return rec
}

func (d *Declarative) rowDate(row *goquery.Selection) string {
	if d.sel.OrderDate != "" {
		return firstText(row, d.sel.OrderDate)
	}
	var date string
	row.Find("td, th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if m := datePattern.FindString(nodeText(cell)); m != "" {
			date = m
			return false
		}
		return true
	})
	return date
}

// find treats an empty selector as matching nothing. goquery already maps an
// invalid selector to an empty selection.
func find(sel *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return sel.Slice(0, 0)
	}
	return sel.Find(selector)
}

func firstText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return nodeText(find(sel, selector).First())
}
