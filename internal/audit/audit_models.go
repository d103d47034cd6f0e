package audit

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// NewQuery describes a search about to be sent to the portal.
type NewQuery struct {
	SessionID  string
	Court      string
	CaseType   string
	CaseNumber string
	FilingYear string
}

// Query is one logged search and its outcome.
type Query struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Court       string     `json:"court"`
	CaseType    string     `json:"case_type"`
	CaseNumber  string     `json:"case_number"`
	FilingYear  string     `json:"filing_year"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Found       bool       `json:"found"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RawResponse is the page the portal returned for a successful search.
// HTML is read back from the page store.
type RawResponse struct {
	QueryID    string    `json:"query_id"`
	FinalURL   string    `json:"final_url"`
	PageHash   string    `json:"page_hash"`
	PageBytes  int64     `json:"page_bytes"`
	HTML       string    `json:"html"`
	ParsedJSON string    `json:"parsed_json"`
	FetchedAt  time.Time `json:"fetched_at"`
}
