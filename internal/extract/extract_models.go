package extract

// Parties holds the named sides of a case. Empty strings mean "not found".
type Parties struct {
	Petitioner string `json:"petitioner,omitempty"`
	Respondent string `json:"respondent,omitempty"`
}

// OrderLink references a downloadable order or judgment.
type OrderLink struct {
	Date   string `json:"date"`
	Title  string `json:"title"`
	PDFURL string `json:"pdf_url"`
}

// CaseRecord is the normalized result of a case-status lookup. Dates are passed
// through verbatim from the portal.
type CaseRecord struct {
	Found           bool        `json:"found"`
	Parties         Parties     `json:"parties"`
	FilingDate      string      `json:"filing_date,omitempty"`
	NextHearingDate string      `json:"next_hearing_date,omitempty"`
	Orders          []OrderLink `json:"orders"`
}

// MostRecent returns the first order in document order; portals conventionally
// list the latest order first. It returns nil when there are no orders.
func (r *CaseRecord) MostRecent() *OrderLink {
	if r == nil || len(r.Orders) == 0 {
		return nil
	}
	o := r.Orders[0]
	return &o
}

func newRecord() *CaseRecord {
	return &CaseRecord{Orders: []OrderLink{}}
}
