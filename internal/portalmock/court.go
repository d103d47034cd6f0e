package portalmock

import (
	"fmt"

	"github.com/raysh454/courtfetch/internal/courtcfg"
)

// FormSelectors are the selectors that drive the portal's search form.
func FormSelectors() courtcfg.Selectors {
	return courtcfg.Selectors{
		CaptchaImage:    "#captcha-image",
		CaseTypeSelect:  "select[name=case_type]",
		CaseNumberInput: "input[name=case_no]",
		CaseYearInput:   "input[name=case_year]",
		CaptchaInput:    "input[name=captcha]",
		SubmitButton:    "#search-btn",
		ResultMarker:    "#case-result",
	}
}

// Court returns a court configuration for the portal at baseURL. With
// declarative set it also carries extraction selectors for the result page.
func Court(baseURL string, declarative bool) (*courtcfg.CourtConfig, error) {
	sel := FormSelectors()
	if declarative {
		sel.Petitioner = "#case-result td.petitioner"
		sel.Respondent = "#case-result td.respondent"
		sel.FilingDate = "#case-result td.filing-date"
		sel.NextHearingDate = "#case-result td.next-date"
		sel.OrdersTableRows = "table.orders tbody tr"
		sel.OrderLink = "a.order"
	}
	c := &courtcfg.CourtConfig{
		Name:      "Mock High Court",
		PortalURL: baseURL + "/case-status",
		Selectors: sel,
	}
	if err := c.Normalize(courtcfg.Options{}); err != nil {
		return nil, fmt.Errorf("mock court config: %w", err)
	}
	return c, nil
}
