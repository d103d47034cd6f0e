package portalmock

import "html/template"

// CaseType is one entry of the portal's case type drop-down.
type CaseType struct {
	Value string
	Label string
}

// Order is a dated document attached to a case.
type Order struct {
	Date  string
	Title string
	File  string // served under /orders/
}

// Case is a record the portal can return. Type holds the drop-down value.
type Case struct {
	Type        string
	Number      string
	Year        string
	Petitioner  string
	Respondent  string
	FilingDate  string
	NextHearing string
	Orders      []Order // newest first, as the portal lists them
}

// CaseTypes returns the drop-down options of the search form.
func CaseTypes() []CaseType {
	return []CaseType{
		{Value: "1", Label: "CRL"},
		{Value: "2", Label: "W.P.(C)"},
		{Value: "3", Label: "CS(OS)"},
	}
}

// SampleCases returns the demo records.
func SampleCases() []Case {
	return []Case{
		{
			Type:        "1",
			Number:      "123",
			Year:        "2024",
			Petitioner:  "ABC Pvt. Ltd.",
			Respondent:  "State of Delhi",
			FilingDate:  "03/01/2024",
			NextHearing: "14/11/2024",
			Orders: []Order{
				{Date: "12/03/2024", Title: "Order dated 12.03.2024", File: "crl-123-2024-2.pdf"},
				{Date: "02/02/2024", Title: "Order dated 02.02.2024", File: "crl-123-2024-1.pdf"},
			},
		},
		{
			Type:        "2",
			Number:      "4567",
			Year:        "2023",
			Petitioner:  "Residents Welfare Association, Sector 9",
			Respondent:  "Municipal Corporation of Delhi",
			FilingDate:  "21/07/2023",
			NextHearing: "09/01/2025",
			Orders: []Order{
				{Date: "30/08/2023", Title: "Judgment", File: "wpc-4567-2023-1.pdf"},
			},
		},
		{
			Type:        "3",
			Number:      "88",
			Year:        "2022",
			Petitioner:  "Meera Sharma",
			Respondent:  "Rakesh Sharma",
			FilingDate:  "11/02/2022",
			NextHearing: "",
		},
	}
}

var searchPage = template.Must(template.New("search").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Case Status - Mock High Court</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; }
        label { display: block; margin-top: 10px; }
        .error { color: #721c24; background: #f8d7da; padding: 10px; border-radius: 4px; }
    </style>
</head>
<body>
    <h1>Case Status</h1>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    <form id="search-form" method="post" action="/case-status">
        <input type="hidden" name="token" value="{{.Token}}">
        <label>Case Type
            <select name="case_type" id="case_type">
                <option value="">-- Select --</option>
                {{range .CaseTypes}}<option value="{{.Value}}">{{.Label}}</option>
                {{end}}
            </select>
        </label>
        <label>Case Number <input type="text" name="case_no" id="case_no"></label>
        <label>Year <input type="text" name="case_year" id="case_year"></label>
        <div>
            <img id="captcha-image" src="/captcha.png?v={{.Nonce}}" alt="verification code">
        </div>
        <label>Enter the code shown <input type="text" name="captcha" id="captcha" autocomplete="off"></label>
        <button type="submit" id="search-btn" name="action" value="search">Search</button>
    </form>
</body>
</html>`))

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Case Status - Result</title>
</head>
<body>
    <h1>Case Status</h1>
    <div id="case-result">
    {{if .Case}}
        <h2>{{.Label}} {{.Case.Number}}/{{.Case.Year}}</h2>
        <table class="details">
            <tr><th>Case Number</th><td>{{.Label}} {{.Case.Number}}/{{.Case.Year}}</td></tr>
            <tr><td>Petitioner</td><td class="petitioner">{{.Case.Petitioner}}</td></tr>
            <tr><td>Respondent</td><td class="respondent">{{.Case.Respondent}}</td></tr>
            <tr><td>Filing Date</td><td class="filing-date">{{.Case.FilingDate}}</td></tr>
            <tr><td>Next Hearing Date</td><td class="next-date">{{.Case.NextHearing}}</td></tr>
        </table>
        <h3>Orders</h3>
        <table class="orders">
            <thead><tr><th>Date</th><th>Order</th></tr></thead>
            <tbody>
            {{range .Case.Orders}}<tr><td>{{.Date}}</td><td><a class="order" href="/orders/{{.File}}">{{.Title}}</a></td></tr>
            {{end}}
            </tbody>
        </table>
    {{else}}
        <p class="no-record">No record found for the given case details.</p>
    {{end}}
    </div>
    <p><a href="/case-status">New search</a></p>
</body>
</html>`))
