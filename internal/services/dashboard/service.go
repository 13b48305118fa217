package dashboard

import (
	"encoding/json"
	"fmt"

	"consultdesk/internal/api"
)

// RecentConsultation is one row of the dashboard's recent activity feed
type RecentConsultation struct {
	ID             string `json:"id"`
	CustomerName   string `json:"customer_name"`
	Classification string `json:"classification"`
	CTALevel       string `json:"cta_level"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// Stats mirrors the backend dashboard aggregate
type Stats struct {
	TotalConsultations int                  `json:"total_consultations"`
	RegisteredCount    int                  `json:"registered_count"`
	UnclassifiedCount  int                  `json:"unclassified_count"`
	ReportPendingCount int                  `json:"report_pending_count"`
	SentCount          int                  `json:"sent_count"`
	ViewRate           float64              `json:"view_rate"`
	CTAHot             int                  `json:"cta_hot"`
	CTAWarm            int                  `json:"cta_warm"`
	CTACool            int                  `json:"cta_cool"`
	Recent             []RecentConsultation `json:"recent_consultations"`
}

// Service fetches the dashboard aggregate from the backend
type Service struct {
	api *api.Client
}

// NewService creates a new dashboard service
func NewService(client *api.Client) *Service {
	return &Service{api: client}
}

// GetStats fetches the current dashboard snapshot
func (s *Service) GetStats() (*Stats, error) {
	resp, err := s.api.Get("api/dashboard/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dashboard stats: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var stats Stats
	if err := json.Unmarshal(resp.Body(), &stats); err != nil {
		return nil, fmt.Errorf("failed to parse dashboard stats: %w", err)
	}
	return &stats, nil
}
