package csvimport

// Schema columns accepted in the CSV header. Only original_text is mandatory;
// the customer identity columns may be absent or empty.
const (
	ColCustomerID     = "customer_id"
	ColCustomerName   = "customer_name"
	ColCustomerEmail  = "customer_email"
	ColCustomerLineID = "customer_line_id"
	ColOriginalText   = "original_text"
)

var schemaColumns = []string{
	ColCustomerID,
	ColCustomerName,
	ColCustomerEmail,
	ColCustomerLineID,
	ColOriginalText,
}

var optionalColumns = []string{
	ColCustomerID,
	ColCustomerName,
	ColCustomerEmail,
	ColCustomerLineID,
}

// DraftRow is one consultation candidate extracted from a CSV data row.
// Field names match the backend create payload.
type DraftRow struct {
	CustomerID     string `json:"customer_id"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	CustomerLineID string `json:"customer_line_id"`
	OriginalText   string `json:"original_text"`
}

// IssueKind distinguishes row-level errors (row excluded) from warnings (row kept)
type IssueKind string

const (
	KindError   IssueKind = "error"
	KindWarning IssueKind = "warning"
)

// RowIssue reports a problem on a single CSV row. Row is the 1-based visual
// line number (header = 1, first data row = 2); 0 marks a file-level issue.
type RowIssue struct {
	Row     int       `json:"row"`
	Message string    `json:"message"`
	Kind    IssueKind `json:"kind"`
}

// Result is the outcome of validating a parsed CSV file
type Result struct {
	ValidRecords []DraftRow `json:"valid_records"`
	Errors       []RowIssue `json:"errors"`
	Warnings     []RowIssue `json:"warnings"`
}

// SubmitResponse mirrors the backend bulk-create response
type SubmitResponse struct {
	Created int      `json:"created"`
	IDs     []string `json:"ids"`
}

// Preview caps for the staging UI. The preview cap only limits display;
// the submit cap is enforced at submission time with no partial submission.
const (
	PreviewCap = 20
	SubmitCap  = 100
)
