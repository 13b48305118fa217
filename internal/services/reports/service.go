package reports

import (
	"encoding/json"
	"fmt"
	"log"

	"consultdesk/internal/api"
)

// Service wraps the report review endpoints of the backend API
type Service struct {
	api *api.Client
}

// NewService creates a new reports service
func NewService(client *api.Client) *Service {
	return &Service{api: client}
}

// reportRow is the undecoded report record as the backend returns it
type reportRow struct {
	ID             string          `json:"id"`
	ConsultationID string          `json:"consultation_id"`
	ReportData     json.RawMessage `json:"report_data"`
	ReportDataKo   json.RawMessage `json:"report_data_ko"`
	ReviewCount    int             `json:"review_count"`
	ReviewPassed   bool            `json:"review_passed"`
	ReviewNotes    string          `json:"review_notes"`
	AccessToken    string          `json:"access_token"`
	EmailSentAt    string          `json:"email_sent_at"`
	EmailOpenedAt  string          `json:"email_opened_at"`
	Status         ReportStatus    `json:"status"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
	Consultations  *CustomerRef    `json:"consultations"`
}

// decodeRow converts a wire row into a Report, classifying the payload
// version at this boundary. A row whose payload cannot be decoded is
// returned with a nil Data so the rest of the list still renders; the
// decode failure is logged once here. Rows predating the customer join get
// the name backfilled through the client's cached lookup.
func (s *Service) decodeRow(row reportRow) Report {
	report := Report{
		ID:             row.ID,
		ConsultationID: row.ConsultationID,
		ReviewCount:    row.ReviewCount,
		ReviewPassed:   row.ReviewPassed,
		ReviewNotes:    row.ReviewNotes,
		AccessToken:    row.AccessToken,
		EmailSentAt:    row.EmailSentAt,
		EmailOpenedAt:  row.EmailOpenedAt,
		Status:         row.Status,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		Customer:       row.Consultations,
	}

	if len(row.ReportData) > 0 {
		data, err := DecodeReportData(row.ReportData)
		if err != nil {
			log.Printf("WARNING: Report %s has an undecodable payload: %v", row.ID, err)
		} else {
			report.Data = data
		}
	}
	if len(row.ReportDataKo) > 0 {
		if dataKo, err := DecodeReportData(row.ReportDataKo); err == nil {
			report.DataKo = dataKo
		}
	}

	if report.Customer == nil && row.ConsultationID != "" {
		report.Customer = &CustomerRef{CustomerName: s.api.GetCustomerName(row.ConsultationID)}
	}

	return report
}

// List returns all reports, newest first, with payloads decoded
func (s *Service) List() ([]Report, error) {
	resp, err := s.api.Get("api/reports", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result struct {
		Data []reportRow `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse reports response: %w", err)
	}

	reports := make([]Report, 0, len(result.Data))
	for _, row := range result.Data {
		reports = append(reports, s.decodeRow(row))
	}
	return reports, nil
}

// Get fetches one report by ID
func (s *Service) Get(id string) (*Report, error) {
	resp, err := s.api.Get(fmt.Sprintf("api/reports/%s", id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var row reportRow
	if err := json.Unmarshal(resp.Body(), &row); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	report := s.decodeRow(row)
	return &report, nil
}

// Approve marks a draft or rejected report as approved. The backend also
// advances the owning consultation to report_approved.
func (s *Service) Approve(id string) (string, error) {
	resp, err := s.api.Put(fmt.Sprintf("api/reports/%s/approve", id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to approve report: %w", err)
	}
	if !resp.IsSuccess() {
		return "", api.ParseAPIError(resp)
	}

	var result struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse approve response: %w", err)
	}
	return result.AccessToken, nil
}

// Reject marks a report as rejected
func (s *Service) Reject(id string) error {
	resp, err := s.api.Put(fmt.Sprintf("api/reports/%s/reject", id), nil)
	if err != nil {
		return fmt.Errorf("failed to reject report: %w", err)
	}
	if !resp.IsSuccess() {
		return api.ParseAPIError(resp)
	}
	return nil
}

// Edit replaces a report's payload. Only the current schema version is
// writable; older layouts are read-only and never round-trip.
func (s *Service) Edit(id string, data *ReportData) error {
	if data == nil {
		return fmt.Errorf("report payload is required")
	}
	if !data.SchemaVersion.Editable() {
		return fmt.Errorf("reports with schema version %s are read-only", data.SchemaVersion)
	}

	wire, err := EncodeReportData(data)
	if err != nil {
		return fmt.Errorf("failed to encode report payload: %w", err)
	}

	resp, err := s.api.Put(fmt.Sprintf("api/reports/%s/edit", id), map[string]interface{}{
		"report_data": wire,
	})
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if !resp.IsSuccess() {
		return api.ParseAPIError(resp)
	}
	return nil
}

// Translate returns the Korean rendition of a report's payload, generated
// on first call and cached by the backend afterwards
func (s *Service) Translate(id string) (*ReportData, bool, error) {
	resp, err := s.api.Get(fmt.Sprintf("api/reports/%s/translate", id), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to translate report: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, false, api.ParseAPIError(resp)
	}

	var result struct {
		ReportDataKo json.RawMessage `json:"report_data_ko"`
		Cached       bool            `json:"cached"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, false, fmt.Errorf("failed to parse translate response: %w", err)
	}

	data, err := DecodeReportData(result.ReportDataKo)
	if err != nil {
		return nil, false, err
	}
	return data, result.Cached, nil
}

// SendEmail emails an approved report's share link to the customer
func (s *Service) SendEmail(id string) (string, error) {
	resp, err := s.api.Post(fmt.Sprintf("api/reports/%s/send-email", id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to send report email: %w", err)
	}
	if !resp.IsSuccess() {
		return "", api.ParseAPIError(resp)
	}

	var result struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		EmailSentTo string `json:"email_sent_to"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse send-email response: %w", err)
	}
	return result.EmailSentTo, nil
}

// GetPublic fetches a report through its customer share token. The backend
// answers 410 for expired links and 403 for reports not yet sent; both come
// back as *api.APIError with the detail message intact.
func (s *Service) GetPublic(token string) (*PublicReport, error) {
	resp, err := s.api.Get(fmt.Sprintf("api/public/report/%s", token), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shared report: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result struct {
		ReportData   json.RawMessage `json:"report_data"`
		CustomerName string          `json:"customer_name"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse shared report: %w", err)
	}

	data, err := DecodeReportData(result.ReportData)
	if err != nil {
		return nil, err
	}
	return &PublicReport{Data: data, CustomerName: result.CustomerName}, nil
}

// VerifyPublic verifies access to a shared report link
func (s *Service) VerifyPublic(token string) (string, error) {
	resp, err := s.api.Post(fmt.Sprintf("api/public/report/%s/verify", token), map[string]string{})
	if err != nil {
		return "", fmt.Errorf("failed to verify shared report: %w", err)
	}
	if !resp.IsSuccess() {
		return "", api.ParseAPIError(resp)
	}

	var result struct {
		Verified bool   `json:"verified"`
		ReportID string `json:"report_id"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse verify response: %w", err)
	}
	if !result.Verified {
		return "", fmt.Errorf("shared report verification failed")
	}
	return result.ReportID, nil
}

// TrackOpened records that the customer opened a shared report
func (s *Service) TrackOpened(token string) error {
	resp, err := s.api.Post(fmt.Sprintf("api/public/report/%s/opened", token), nil)
	if err != nil {
		return fmt.Errorf("failed to track report open: %w", err)
	}
	if !resp.IsSuccess() {
		return api.ParseAPIError(resp)
	}
	return nil
}
