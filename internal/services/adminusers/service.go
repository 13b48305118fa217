package adminusers

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"consultdesk/internal/api"
)

// Minimum credential lengths, matching the backend's own validation so bad
// input fails before the network
const (
	MinUsernameLen = 3
	MinPasswordLen = 6
)

// AdminUser is one console account. Password hashes never leave the backend.
type AdminUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// Service manages the console's admin accounts
type Service struct {
	api *api.Client
}

// NewService creates a new admin user service
func NewService(client *api.Client) *Service {
	return &Service{api: client}
}

// List returns all admin accounts, newest first
func (s *Service) List() ([]AdminUser, error) {
	resp, err := s.api.Get("api/admin/users", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch admin users: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var result struct {
		Data []AdminUser `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse admin users response: %w", err)
	}
	return result.Data, nil
}

// Create registers a new admin account. Duplicate usernames come back as a
// 409 *api.APIError.
func (s *Service) Create(username, password string) (*AdminUser, error) {
	if utf8.RuneCountInString(username) < MinUsernameLen {
		return nil, fmt.Errorf("아이디는 %d자 이상이어야 합니다", MinUsernameLen)
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return nil, fmt.Errorf("비밀번호는 %d자 이상이어야 합니다", MinPasswordLen)
	}

	resp, err := s.api.Post("api/admin/users", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, api.ParseAPIError(resp)
	}

	var user AdminUser
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("failed to parse create response: %w", err)
	}
	return &user, nil
}

// Delete removes an admin account
func (s *Service) Delete(userID string) error {
	resp, err := s.api.Delete(fmt.Sprintf("api/admin/users/%s", userID), nil)
	if err != nil {
		return fmt.Errorf("failed to delete admin user: %w", err)
	}
	if !resp.IsSuccess() {
		return api.ParseAPIError(resp)
	}
	return nil
}
