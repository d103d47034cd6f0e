package engine

import (
	"strings"
	"time"

	"github.com/raysh454/courtfetch/internal/extract"
)

// Challenge is what a visitor needs to answer a fresh session.
type Challenge struct {
	SessionID    string    `json:"session_id"`
	ImageDataURL string    `json:"image_data_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type SearchRequest struct {
	SessionID  string `json:"session_id"`
	CaseType   string `json:"case_type"`
	CaseNumber string `json:"case_number"`
	FilingYear string `json:"filing_year"`
	Solution   string `json:"captcha"`
}

// trimmed returns req with surrounding whitespace removed from every case
// field. The solution is compared verbatim.
func (r SearchRequest) trimmed() SearchRequest {
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.CaseType = strings.TrimSpace(r.CaseType)
	r.CaseNumber = strings.TrimSpace(r.CaseNumber)
	r.FilingYear = strings.TrimSpace(r.FilingYear)
	return r
}

func (r SearchRequest) missing() []string {
	var out []string
	if r.CaseType == "" {
		out = append(out, "case_type")
	}
	if r.CaseNumber == "" {
		out = append(out, "case_number")
	}
	if r.FilingYear == "" {
		out = append(out, "filing_year")
	}
	return out
}

// Page is the portal's response to a submitted search.
type Page struct {
	FinalURL string
	HTML     string
}

type SearchResult struct {
	Record   *extract.CaseRecord
	FinalURL string
	HTML     string
}
