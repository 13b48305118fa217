package consultations

// Status is a consultation's lifecycle state, owned by the backend and only
// mirrored here. The console never writes a status directly; it requests
// transitions and reflects what the server reports back.
type Status string

const (
	StatusRegistered            Status = "registered"
	StatusProcessing            Status = "processing"
	StatusClassificationPending Status = "classification_pending"
	StatusReportGenerating      Status = "report_generating"
	StatusReportReady           Status = "report_ready"
	StatusReportApproved        Status = "report_approved"
	StatusReportSent            Status = "report_sent"
	StatusReportFailed          Status = "report_failed"
)

// InFlight reports whether the AI pipeline is still working on the
// consultation. Pages containing in-flight items keep the poll session alive.
func (s Status) InFlight() bool {
	switch s {
	case StatusProcessing, StatusClassificationPending, StatusReportGenerating:
		return true
	}
	return false
}

// Retriggerable reports whether bulk report generation may be requested for
// this status. Anything already in-flight or past review is left alone.
func (s Status) Retriggerable() bool {
	return s == StatusRegistered || s == StatusReportFailed
}

// Consultation mirrors the backend consultation record
type Consultation struct {
	ID             string   `json:"id"`
	CustomerID     string   `json:"customer_id"`
	CustomerName   string   `json:"customer_name"`
	CustomerEmail  string   `json:"customer_email"`
	CustomerLineID string   `json:"customer_line_id"`
	OriginalText   string   `json:"original_text"`
	Classification string   `json:"classification"` // dermatology, plastic_surgery, unclassified
	CTALevel       string   `json:"cta_level"`      // hot, warm, cool
	CTASignals     []string `json:"cta_signals"`
	Status         Status   `json:"status"`
	ErrorMessage   string   `json:"error_message"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// Filters narrows a consultation list fetch
type Filters struct {
	Classification string `json:"classification"` // empty = all
	Status         string `json:"status"`         // empty = all
}

// ListRequest describes one page fetch
type ListRequest struct {
	Filters  Filters `json:"filters"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// ListPage is one fetched page of consultations
type ListPage struct {
	Items    []Consultation `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// AnyInFlight reports whether any item on the page is still being processed
func (p *ListPage) AnyInFlight() bool {
	for _, item := range p.Items {
		if item.Status.InFlight() {
			return true
		}
	}
	return false
}

// SkippedItem explains why the backend declined to re-trigger one consultation
type SkippedItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// GenerateReportsResponse mirrors the backend bulk generate response
type GenerateReportsResponse struct {
	Triggered    int           `json:"triggered"`
	TriggeredIDs []string      `json:"triggered_ids"`
	Skipped      []SkippedItem `json:"skipped"`
}

// DeleteResponse mirrors the backend bulk delete response
type DeleteResponse struct {
	Deleted int      `json:"deleted"`
	IDs     []string `json:"ids"`
}
