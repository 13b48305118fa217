package csvimport

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"

	"consultdesk/internal/api"
	"consultdesk/internal/models"
)

// Service coordinates CSV bulk submissions against the backend and keeps an
// audit trail of every attempt in the local database
type Service struct {
	db  *gorm.DB
	api *api.Client
}

// NewService creates a new CSV import service
func NewService(db *gorm.DB, client *api.Client) *Service {
	return &Service{db: db, api: client}
}

// SubmissionError is returned when a submission is blocked locally or
// rejected by the backend. Message is safe to show to the admin.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Submit sends the validated records to the backend in one bulk call.
// Size limits are checked before any network traffic: an empty batch and a
// batch over SubmitCap both abort locally, with no partial submission.
// A failed submission leaves the staged records untouched so the admin can
// retry manually.
func (s *Service) Submit(profileID, fileName string, result Result) (*SubmitResponse, error) {
	records := result.ValidRecords
	if len(records) == 0 {
		return nil, &SubmissionError{Message: "등록할 상담 데이터가 없습니다"}
	}
	if len(records) > SubmitCap {
		return nil, &SubmissionError{Message: fmt.Sprintf("최대 %d건까지 일괄 등록 가능합니다", SubmitCap)}
	}

	payload := map[string]interface{}{"consultations": records}
	resp, err := s.api.Post("api/consultations/bulk", payload)
	if err != nil {
		s.recordImport(profileID, fileName, result, nil, err)
		return nil, &SubmissionError{Message: "일괄 등록 요청에 실패했습니다", Err: err}
	}
	if !resp.IsSuccess() {
		apiErr := api.ParseAPIError(resp)
		s.recordImport(profileID, fileName, result, nil, apiErr)
		return nil, &SubmissionError{Message: "일괄 등록이 거부되었습니다", Err: apiErr}
	}

	var out SubmitResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse bulk create response: %w", err)
	}

	s.recordImport(profileID, fileName, result, &out, nil)
	log.Printf("Bulk import submitted: %d created from %s", out.Created, fileName)
	return &out, nil
}

// SubmitSingle registers one consultation from the manual intake form.
// Only the transcript is mandatory, matching the CSV validation rules.
func (s *Service) SubmitSingle(draft DraftRow) (string, error) {
	if draft.OriginalText == "" {
		return "", &SubmissionError{Message: fmt.Sprintf("필수 필드 누락: %s", ColOriginalText)}
	}

	resp, err := s.api.Post("api/consultations", draft)
	if err != nil {
		return "", &SubmissionError{Message: "상담 등록 요청에 실패했습니다", Err: err}
	}
	if !resp.IsSuccess() {
		return "", &SubmissionError{Message: "상담 등록이 거부되었습니다", Err: api.ParseAPIError(resp)}
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to parse create response: %w", err)
	}

	return out.ID, nil
}

// ListImports returns recent import records, newest first
func (s *Service) ListImports(limit int) ([]models.ImportRecord, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var records []models.ImportRecord
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list import records: %w", err)
	}
	return records, nil
}

func (s *Service) recordImport(profileID, fileName string, result Result, out *SubmitResponse, submitErr error) {
	if s.db == nil {
		return
	}

	record := models.ImportRecord{
		ProfileID:    profileID,
		FileName:     fileName,
		TotalRows:    len(result.ValidRecords) + len(result.Errors),
		ValidRows:    len(result.ValidRecords),
		ErrorCount:   len(result.Errors),
		WarningCount: len(result.Warnings),
		Status:       "submitted",
	}

	if submitErr != nil {
		record.Status = "failed"
		record.ErrorMessage = submitErr.Error()
	} else if out != nil {
		record.Created = out.Created
		if data, err := json.Marshal(out.IDs); err == nil {
			record.CreatedIDs = string(data)
		}
	}

	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("WARNING: Failed to save import record: %v", err)
	}
}
