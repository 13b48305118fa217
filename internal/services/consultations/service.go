package consultations

import (
	"encoding/json"
	"fmt"

	"consultdesk/internal/api"
)

// Service wraps the consultation endpoints of the backend API
type Service struct {
	api *api.Client
}

// NewService creates a new consultations service
func NewService(client *api.Client) *Service {
	return &Service{api: client}
}

// ListPage fetches one filtered page of consultations
func (s *Service) ListPage(req ListRequest) (*ListPage, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	params := map[string]string{
		"page":      fmt.Sprintf("%d", req.Page),
		"page_size": fmt.Sprintf("%d", req.PageSize),
	}
	if req.Filters.Classification != "" {
		params["classification"] = req.Filters.Classification
	}
	if req.Filters.Status != "" {
		params["status"] = req.Filters.Status
	}

	resp, err := s.api.Get("api/consultations", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consultations: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result struct {
		Data     []Consultation `json:"data"`
		Total    int            `json:"total"`
		Page     int            `json:"page"`
		PageSize int            `json:"page_size"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse consultations response: %w", err)
	}

	return &ListPage{
		Items:    result.Data,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}, nil
}

// Get fetches a single consultation by ID
func (s *Service) Get(id string) (*Consultation, error) {
	resp, err := s.api.Get(fmt.Sprintf("api/consultations/%s", id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consultation: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var c Consultation
	if err := json.Unmarshal(resp.Body(), &c); err != nil {
		return nil, fmt.Errorf("failed to parse consultation: %w", err)
	}
	return &c, nil
}

// GenerateReports asks the backend to (re)start report generation for the
// given consultations. The backend decides per item; declined items come
// back in Skipped with a reason.
func (s *Service) GenerateReports(ids []string) (*GenerateReportsResponse, error) {
	resp, err := s.api.Post("api/consultations/generate-reports", map[string]interface{}{
		"consultation_ids": ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request report generation: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result GenerateReportsResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse generate-reports response: %w", err)
	}
	return &result, nil
}

// DeleteMany deletes the given consultations. The backend cascades to
// dependent reports and logs, so this is irreversible.
func (s *Service) DeleteMany(ids []string) (*DeleteResponse, error) {
	resp, err := s.api.Post("api/consultations/delete", map[string]interface{}{
		"consultation_ids": ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request deletion: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result DeleteResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse delete response: %w", err)
	}

	for _, id := range result.IDs {
		s.api.ForgetCustomer(id)
	}
	return &result, nil
}

// Classify applies a manual classification to a consultation waiting in
// classification_pending and resumes the pipeline
func (s *Service) Classify(id, classification string) error {
	resp, err := s.api.Put(fmt.Sprintf("api/consultations/%s/classify", id), map[string]string{
		"classification": classification,
	})
	if err != nil {
		return fmt.Errorf("failed to classify consultation: %w", err)
	}
	if !resp.IsSuccess() {
		return api.ParseAPIError(resp)
	}
	return nil
}

// UpdateCTA overrides the CTA level of a consultation
func (s *Service) UpdateCTA(id, ctaLevel string) error {
	resp, err := s.api.Put(fmt.Sprintf("api/consultations/%s/cta", id), map[string]string{
		"cta_level": ctaLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to update CTA level: %w", err)
	}
	if !resp.IsSuccess() {
		return api.ParseAPIError(resp)
	}
	return nil
}
