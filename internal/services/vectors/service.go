package vectors

import (
	"encoding/json"
	"fmt"
	"strconv"

	"consultdesk/internal/api"
)

// Service manages the FAQ vector knowledge base and its YouTube sources
type Service struct {
	api *api.Client
}

// NewService creates a new knowledge base service
func NewService(client *api.Client) *Service {
	return &Service{api: client}
}

// List returns one page of the knowledge base, newest first, optionally
// filtered to a category
func (s *Service) List(page, pageSize int, category string) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	params := map[string]string{
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(pageSize),
	}
	if category != "" {
		params["category"] = category
	}

	resp, err := s.api.Get("api/vectors", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vectors: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result struct {
		Data     []Vector `json:"data"`
		Total    int      `json:"total"`
		Page     int      `json:"page"`
		PageSize int      `json:"page_size"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse vectors response: %w", err)
	}

	return &Page{
		Items:    result.Data,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}, nil
}

// Delete removes a single vector
func (s *Service) Delete(id string) error {
	resp, err := s.api.Delete(fmt.Sprintf("api/vectors/%s", id), nil)
	if err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}
	if !resp.IsSuccess() {
		return api.ParseAPIError(resp)
	}
	return nil
}

// BulkDelete removes up to BulkDeleteCap vectors in one call. Empty and
// oversized batches are rejected before any network traffic.
func (s *Service) BulkDelete(ids []string) (*BulkDeleteResponse, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("삭제할 ID를 지정해주세요")
	}
	if len(ids) > BulkDeleteCap {
		return nil, fmt.Errorf("한번에 최대 %d건까지 삭제 가능합니다", BulkDeleteCap)
	}

	resp, err := s.api.Post("api/vectors/bulk-delete", map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to bulk delete vectors: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result BulkDeleteResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse bulk delete response: %w", err)
	}
	return &result, nil
}

// AddYouTubeSource registers a video for FAQ extraction. The backend rejects
// malformed URLs and duplicates; both come back as *api.APIError.
func (s *Service) AddYouTubeSource(videoURL, category string) (*YouTubeSource, error) {
	resp, err := s.api.Post("api/youtube/add", map[string]string{
		"video_url": videoURL,
		"category":  category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add youtube source: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result struct {
		ID      string `json:"id"`
		VideoID string `json:"video_id"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse youtube add response: %w", err)
	}
	return &YouTubeSource{ID: result.ID, VideoID: result.VideoID, Category: category, Status: "pending"}, nil
}

// ProcessYouTubeSources runs the transcript-to-FAQ pipeline over every pending
// video and reports the per-video outcomes
func (s *Service) ProcessYouTubeSources() (*ProcessResponse, error) {
	resp, err := s.api.Post("api/youtube/process", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to process youtube sources: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result ProcessResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse youtube process response: %w", err)
	}
	return &result, nil
}

// ListYouTubeSources returns every registered video, newest first
func (s *Service) ListYouTubeSources() ([]YouTubeSource, error) {
	resp, err := s.api.Get("api/youtube/sources", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch youtube sources: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result struct {
		Data []YouTubeSource `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse youtube sources response: %w", err)
	}
	return result.Data, nil
}
