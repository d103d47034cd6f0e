package server

import (
	"github.com/raysh454/courtfetch/internal/audit"
	"github.com/raysh454/courtfetch/internal/extract"
)

// ChallengeResponse is returned by GET /captcha/new.
type ChallengeResponse struct {
	SessionID    string `json:"session_id" example:"2f1b6c9e-8d0a-4c55-9a57-0f3c0b8f7d11"`
	ImageDataURL string `json:"image_data_url" example:"data:image/png;base64,iVBORw0KGgo..."`
	ExpiresAt    string `json:"expires_at" example:"2024-11-14T10:30:00Z"`
}

// SearchRequest is the JSON body of POST /search. Form posts use the same
// field names, with captcha_text accepted as an alias for captcha.
type SearchRequest struct {
	SessionID  string `json:"session_id" example:"2f1b6c9e-8d0a-4c55-9a57-0f3c0b8f7d11"`
	CaseType   string `json:"case_type" example:"CRL"`
	CaseNumber string `json:"case_number" example:"123"`
	FilingYear string `json:"filing_year" example:"2024"`
	Captcha    string `json:"captcha" example:"K7pQ2m"`
}

// SearchResponse carries the extracted case record.
type SearchResponse struct {
	QueryID         string              `json:"query_id,omitempty" example:"9a3e0c2b-1f4d-4f0e-8a1d-5c6b7e8f9a0b"`
	Record          *extract.CaseRecord `json:"record"`
	MostRecentOrder *extract.OrderLink  `json:"most_recent_order,omitempty"`
	FinalURL        string              `json:"final_url" example:"https://court.example/case-status"`
}

// QueryDetails is one audit entry with the orders found for it.
type QueryDetails struct {
	Query  *audit.Query        `json:"query"`
	Orders []extract.OrderLink `json:"orders"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"This challenge has expired or was already used. Please request a new one."`
	Kind  string `json:"kind,omitempty" example:"session_not_found"`
}
