package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"gorm.io/gorm"

	"consultdesk/internal/api"
	"consultdesk/internal/crypto"
	"consultdesk/internal/database"
	"consultdesk/internal/models"
	"consultdesk/internal/services/adminusers"
	"consultdesk/internal/services/consultations"
	"consultdesk/internal/services/csvimport"
	"consultdesk/internal/services/dashboard"
	"consultdesk/internal/services/reports"
	"consultdesk/internal/services/scheduler"
	"consultdesk/internal/services/vectors"
)

// App struct - main application state
type App struct {
	ctx context.Context
	db  *gorm.DB

	mu              sync.Mutex
	selectedProfile *models.ConnectionProfile
	apiClient       *api.Client

	csvService          *csvimport.Service
	consultationService *consultations.Service
	listView            *consultations.ListView
	reportService       *reports.Service
	dashboardService    *dashboard.Service
	vectorService       *vectors.Service
	adminUserService    *adminusers.Service
	schedulerService    *scheduler.Service

	stagedImport   *csvimport.Result
	stagedFileName string
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	log.Println("Application starting up...")

	// Initialize encryption (FATAL if this fails - we cannot save profiles without it)
	if err := crypto.InitEncryption(); err != nil {
		log.Fatalf("FATAL: Encryption initialization failed: %v\nProfiles cannot be saved without encryption.", err)
	}
	log.Println("Encryption initialized successfully")

	// Initialize database
	db, err := database.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	a.db = db
	log.Println("Database initialized successfully")

	a.schedulerService = scheduler.NewService(db, ctx)
	if err := a.schedulerService.Start(); err != nil {
		log.Printf("WARNING: Failed to start scheduler: %v", err)
	} else {
		log.Println("Scheduler service initialized and started")
	}

	log.Println("Startup complete")
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	log.Println("Application shutting down...")

	a.mu.Lock()
	if a.listView != nil {
		a.listView.Close()
		a.listView = nil
	}
	a.mu.Unlock()

	// Stop scheduler
	if a.schedulerService != nil {
		a.schedulerService.Stop()
	}

	// Close database
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}

// emit pushes an event to the frontend. Safe before the Wails context exists.
func (a *App) emit(event string, data interface{}) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, event, data)
}

// ====================================================================================
// WAILS-BOUND METHODS - Exposed to Frontend
// ====================================================================================

// Profile Management Methods

// ListProfiles returns all connection profiles
func (a *App) ListProfiles() ([]models.ConnectionProfile, error) {
	var profiles []models.ConnectionProfile
	if err := a.db.Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfile retrieves a specific connection profile by ID
func (a *App) GetProfile(profileID string) (*models.ConnectionProfile, error) {
	var profile models.ConnectionProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile creates a new connection profile
// NOTE: Frontend should call TestConnection() first to validate the
// credentials and URL before saving to database
func (a *App) CreateProfile(req CreateProfileRequest) error {
	// Validate encryption is initialized
	if !crypto.IsInitialized() {
		return errors.New("encryption system not initialized - cannot save profiles")
	}

	passwordEnc, err := crypto.EncryptSecret(req.Password)
	if err != nil {
		return err
	}

	profile := &models.ConnectionProfile{
		Name:        req.Name,
		BaseURL:     req.BaseURL,
		Username:    req.Username,
		PasswordEnc: passwordEnc,
	}

	return a.db.Create(profile).Error
}

// UpdateProfile updates an existing connection profile
func (a *App) UpdateProfile(profileID string, req CreateProfileRequest) error {
	var profile models.ConnectionProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return err
	}

	profile.Name = req.Name
	profile.BaseURL = req.BaseURL
	profile.Username = req.Username

	// Encrypt password if provided
	if req.Password != "" {
		passwordEnc, err := crypto.EncryptSecret(req.Password)
		if err != nil {
			return err
		}
		profile.PasswordEnc = passwordEnc
		// Credentials changed, any stored session token is stale
		profile.TokenEnc = ""
	}

	return a.db.Save(&profile).Error
}

// DeleteProfile deletes a connection profile
func (a *App) DeleteProfile(profileID string) error {
	return a.db.Where("id = ?", profileID).Delete(&models.ConnectionProfile{}).Error
}

// ConnectProfile logs into the backend with a saved profile and wires up all
// backend-facing services. The JWT from login is kept encrypted on the
// profile so a restart can resume without re-entering credentials.
func (a *App) ConnectProfile(profileID string) error {
	var profile models.ConnectionProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return err
	}

	password, err := crypto.DecryptSecret(profile.PasswordEnc)
	if err != nil {
		return fmt.Errorf("failed to decrypt profile password: %w", err)
	}

	client := api.NewClient(profile.BaseURL)
	token, err := client.Login(profile.Username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if tokenEnc, err := crypto.EncryptSecret(token); err == nil {
		profile.TokenEnc = tokenEnc
		if err := a.db.Save(&profile).Error; err != nil {
			log.Printf("WARNING: Failed to persist session token: %v", err)
		}
	}

	client.SetOnUnauthorized(func() {
		log.Println("WARNING: Session expired, clearing stored token")
		a.handleSessionExpired(profile.ID)
	})

	a.mu.Lock()
	if a.listView != nil {
		a.listView.Close()
	}
	a.selectedProfile = &profile
	a.apiClient = client
	a.csvService = csvimport.NewService(a.db, client)
	a.consultationService = consultations.NewService(client)
	a.listView = consultations.NewListView(a.consultationService, consultations.DefaultPollInterval, a.emit)
	a.reportService = reports.NewService(client)
	a.dashboardService = dashboard.NewService(client)
	a.vectorService = vectors.NewService(client)
	a.adminUserService = adminusers.NewService(client)
	a.stagedImport = nil
	a.stagedFileName = ""
	a.mu.Unlock()

	a.schedulerService.SetBackendServices(a.consultationService, a.dashboardService)

	log.Printf("Connected to backend as %s (profile: %s)", profile.Username, profile.Name)
	return nil
}

// Disconnect tears down the current backend session
func (a *App) Disconnect() {
	a.mu.Lock()
	if a.listView != nil {
		a.listView.Close()
		a.listView = nil
	}
	a.selectedProfile = nil
	a.apiClient = nil
	a.csvService = nil
	a.consultationService = nil
	a.reportService = nil
	a.dashboardService = nil
	a.vectorService = nil
	a.adminUserService = nil
	a.stagedImport = nil
	a.stagedFileName = ""
	a.mu.Unlock()

	a.schedulerService.SetBackendServices(nil, nil)
	log.Println("Disconnected from backend")
}

// GetSelectedProfile returns the currently connected profile
func (a *App) GetSelectedProfile() (*models.ConnectionProfile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selectedProfile == nil {
		return nil, nil
	}
	return a.selectedProfile, nil
}

// handleSessionExpired clears the stored token and notifies the frontend
func (a *App) handleSessionExpired(profileID string) {
	if err := a.db.Model(&models.ConnectionProfile{}).
		Where("id = ?", profileID).
		Update("token_enc", "").Error; err != nil {
		log.Printf("WARNING: Failed to clear stored token: %v", err)
	}
	a.emit("session:expired", profileID)
}

// TestConnection tests backend credentials without saving anything
func (a *App) TestConnection(req TestConnectionRequest) TestConnectionResponse {
	client := api.NewClient(req.BaseURL)

	_, err := client.Login(req.Username, req.Password)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case 401:
				return TestConnectionResponse{Success: false, Error: "Invalid credentials (wrong username or password)"}
			case 404:
				return TestConnectionResponse{Success: false, Error: "Server not found or invalid URL"}
			default:
				return TestConnectionResponse{Success: false, Error: apiErr.Detail}
			}
		}
		return TestConnectionResponse{Success: false, Error: fmt.Sprintf("Connection failed: %v", err)}
	}

	return TestConnectionResponse{Success: true, UserName: req.Username}
}

// CSV Import Methods

// StageCSV parses and validates an uploaded CSV file. Nothing touches the
// backend until SubmitStagedCSV; the staged batch lives in memory so the
// admin can review errors, warnings and the preview first.
func (a *App) StageCSV(fileName, text string) (*StagedImportResponse, error) {
	result := csvimport.ParseAndValidate(text)

	a.mu.Lock()
	a.stagedImport = &result
	a.stagedFileName = fileName
	a.mu.Unlock()

	return &StagedImportResponse{
		FileName:   fileName,
		ValidCount: len(result.ValidRecords),
		ErrorCount: len(result.Errors),
		WarnCount:  len(result.Warnings),
		Errors:     result.Errors,
		Warnings:   result.Warnings,
		Preview:    csvimport.PreviewRows(result.ValidRecords),
		SubmitCap:  csvimport.SubmitCap,
	}, nil
}

// SubmitStagedCSV submits the currently staged batch to the backend
func (a *App) SubmitStagedCSV() (*csvimport.SubmitResponse, error) {
	a.mu.Lock()
	svc := a.csvService
	staged := a.stagedImport
	fileName := a.stagedFileName
	var profileID string
	if a.selectedProfile != nil {
		profileID = a.selectedProfile.ID
	}
	a.mu.Unlock()

	if svc == nil {
		return nil, errors.New("no backend connected")
	}
	if staged == nil {
		return nil, errors.New("no CSV file staged")
	}

	resp, err := svc.Submit(profileID, fileName, *staged)
	if err != nil {
		return nil, err
	}

	// Batch consumed; a new upload must be staged for the next submission
	a.mu.Lock()
	a.stagedImport = nil
	a.stagedFileName = ""
	a.mu.Unlock()

	a.emit("import:submitted", resp)
	return resp, nil
}

// SubmitConsultation registers one consultation from the manual intake form
func (a *App) SubmitConsultation(draft csvimport.DraftRow) (string, error) {
	a.mu.Lock()
	svc := a.csvService
	a.mu.Unlock()

	if svc == nil {
		return "", errors.New("no backend connected")
	}
	return svc.SubmitSingle(draft)
}

// ListImportHistory returns recent bulk import records, newest first
func (a *App) ListImportHistory(limit int) ([]models.ImportRecord, error) {
	a.mu.Lock()
	svc := a.csvService
	a.mu.Unlock()

	if svc == nil {
		return nil, errors.New("no backend connected")
	}
	return svc.ListImports(limit)
}

// Consultation List Methods

// LoadConsultations fetches a page for the list screen
func (a *App) LoadConsultations(req consultations.ListRequest) (*consultations.ViewState, error) {
	view, err := a.currentView()
	if err != nil {
		return nil, err
	}
	return view.Load(req)
}

// GetConsultationView returns the current list state without fetching
func (a *App) GetConsultationView() (*consultations.ViewState, error) {
	view, err := a.currentView()
	if err != nil {
		return nil, err
	}
	return view.Snapshot(), nil
}

// ToggleConsultationSelection flips one row's checkbox
func (a *App) ToggleConsultationSelection(id string) (*consultations.ViewState, error) {
	view, err := a.currentView()
	if err != nil {
		return nil, err
	}
	return view.ToggleSelect(id), nil
}

// ToggleSelectAllConsultations selects or clears the whole page
func (a *App) ToggleSelectAllConsultations() (*consultations.ViewState, error) {
	view, err := a.currentView()
	if err != nil {
		return nil, err
	}
	return view.ToggleSelectAll(), nil
}

// GenerateReportsForSelection triggers report generation for the selected
// rows. confirmed must be true; the frontend shows the confirmation dialog.
func (a *App) GenerateReportsForSelection(confirmed bool) (*consultations.GenerateReportsResponse, error) {
	view, err := a.currentView()
	if err != nil {
		return nil, err
	}
	return view.GenerateReportsForSelected(confirmed)
}

// DeleteSelectedConsultations deletes the selected rows after confirmation
func (a *App) DeleteSelectedConsultations(confirmed bool) (*consultations.DeleteResponse, error) {
	view, err := a.currentView()
	if err != nil {
		return nil, err
	}
	return view.DeleteSelected(confirmed)
}

// GetConsultation fetches one consultation's full record
func (a *App) GetConsultation(id string) (*consultations.Consultation, error) {
	a.mu.Lock()
	svc := a.consultationService
	a.mu.Unlock()

	if svc == nil {
		return nil, errors.New("no backend connected")
	}
	return svc.Get(id)
}

// ResolveCustomerName returns the display name behind a consultation ID,
// cached per session. Screens that only hold an ID use it instead of
// fetching the whole record.
func (a *App) ResolveCustomerName(consultationID string) (string, error) {
	a.mu.Lock()
	client := a.apiClient
	a.mu.Unlock()

	if client == nil {
		return "", errors.New("no backend connected")
	}
	return client.GetCustomerName(consultationID), nil
}

// ClassifyConsultation applies a manual classification and resumes the pipeline
func (a *App) ClassifyConsultation(id, classification string) error {
	a.mu.Lock()
	svc := a.consultationService
	a.mu.Unlock()

	if svc == nil {
		return errors.New("no backend connected")
	}
	if err := svc.Classify(id, classification); err != nil {
		return err
	}

	if view, err := a.currentView(); err == nil {
		view.Refresh()
	}
	return nil
}

// SetConsultationCTA overrides a consultation's CTA level
func (a *App) SetConsultationCTA(id, ctaLevel string) error {
	a.mu.Lock()
	svc := a.consultationService
	a.mu.Unlock()

	if svc == nil {
		return errors.New("no backend connected")
	}
	if err := svc.UpdateCTA(id, ctaLevel); err != nil {
		return err
	}

	if view, err := a.currentView(); err == nil {
		view.Refresh()
	}
	return nil
}

func (a *App) currentView() (*consultations.ListView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listView == nil {
		return nil, errors.New("no backend connected")
	}
	return a.listView, nil
}

// Report Methods

// ListReports returns all reports with decoded payloads
func (a *App) ListReports() ([]reports.Report, error) {
	svc, err := a.currentReportService()
	if err != nil {
		return nil, err
	}
	return svc.List()
}

// GetReport fetches one report
func (a *App) GetReport(id string) (*reports.Report, error) {
	svc, err := a.currentReportService()
	if err != nil {
		return nil, err
	}
	return svc.Get(id)
}

// ApproveReport approves a report and returns its customer access token
func (a *App) ApproveReport(id string) (string, error) {
	svc, err := a.currentReportService()
	if err != nil {
		return "", err
	}
	return svc.Approve(id)
}

// RejectReport rejects a report
func (a *App) RejectReport(id string) error {
	svc, err := a.currentReportService()
	if err != nil {
		return err
	}
	return svc.Reject(id)
}

// EditReport replaces a report's payload (current schema version only)
func (a *App) EditReport(id string, data *reports.ReportData) error {
	svc, err := a.currentReportService()
	if err != nil {
		return err
	}
	return svc.Edit(id, data)
}

// TranslateReport returns the Korean rendition of a report
func (a *App) TranslateReport(id string) (*reports.ReportData, error) {
	svc, err := a.currentReportService()
	if err != nil {
		return nil, err
	}
	data, _, err := svc.Translate(id)
	return data, err
}

// SendReportEmail emails an approved report to its customer
func (a *App) SendReportEmail(id string) (string, error) {
	svc, err := a.currentReportService()
	if err != nil {
		return "", err
	}
	return svc.SendEmail(id)
}

// GetSharedReport previews a report the way the customer share link shows it
func (a *App) GetSharedReport(token string) (*reports.PublicReport, error) {
	svc, err := a.currentReportService()
	if err != nil {
		return nil, err
	}
	return svc.GetPublic(token)
}

// VerifySharedReport checks that a share link is still valid and returns the
// report ID it points at
func (a *App) VerifySharedReport(token string) (string, error) {
	svc, err := a.currentReportService()
	if err != nil {
		return "", err
	}
	return svc.VerifyPublic(token)
}

// TrackSharedReportOpened records a customer open on a share link, feeding the
// dashboard's view rate
func (a *App) TrackSharedReportOpened(token string) error {
	svc, err := a.currentReportService()
	if err != nil {
		return err
	}
	return svc.TrackOpened(token)
}

func (a *App) currentReportService() (*reports.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reportService == nil {
		return nil, errors.New("no backend connected")
	}
	return a.reportService, nil
}

// Dashboard Methods

// GetDashboardStats fetches the dashboard aggregate
func (a *App) GetDashboardStats() (*dashboard.Stats, error) {
	a.mu.Lock()
	svc := a.dashboardService
	a.mu.Unlock()

	if svc == nil {
		return nil, errors.New("no backend connected")
	}
	return svc.GetStats()
}

// Knowledge Base Methods

// ListKnowledgeVectors returns one page of the FAQ knowledge base
func (a *App) ListKnowledgeVectors(page, pageSize int, category string) (*vectors.Page, error) {
	svc, err := a.currentVectorService()
	if err != nil {
		return nil, err
	}
	return svc.List(page, pageSize, category)
}

// DeleteKnowledgeVector removes one FAQ entry
func (a *App) DeleteKnowledgeVector(id string) error {
	svc, err := a.currentVectorService()
	if err != nil {
		return err
	}
	return svc.Delete(id)
}

// BulkDeleteKnowledgeVectors removes the checked FAQ entries
func (a *App) BulkDeleteKnowledgeVectors(ids []string) (*vectors.BulkDeleteResponse, error) {
	svc, err := a.currentVectorService()
	if err != nil {
		return nil, err
	}
	return svc.BulkDelete(ids)
}

// AddYouTubeSource registers a video for FAQ extraction
func (a *App) AddYouTubeSource(videoURL, category string) (*vectors.YouTubeSource, error) {
	svc, err := a.currentVectorService()
	if err != nil {
		return nil, err
	}
	return svc.AddYouTubeSource(videoURL, category)
}

// ProcessYouTubeSources runs the FAQ pipeline over every pending video
func (a *App) ProcessYouTubeSources() (*vectors.ProcessResponse, error) {
	svc, err := a.currentVectorService()
	if err != nil {
		return nil, err
	}
	return svc.ProcessYouTubeSources()
}

// ListYouTubeSources returns every registered video with its pipeline status
func (a *App) ListYouTubeSources() ([]vectors.YouTubeSource, error) {
	svc, err := a.currentVectorService()
	if err != nil {
		return nil, err
	}
	return svc.ListYouTubeSources()
}

func (a *App) currentVectorService() (*vectors.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.vectorService == nil {
		return nil, errors.New("no backend connected")
	}
	return a.vectorService, nil
}

// Admin User Methods

// ListAdminUsers returns all console accounts
func (a *App) ListAdminUsers() ([]adminusers.AdminUser, error) {
	svc, err := a.currentAdminUserService()
	if err != nil {
		return nil, err
	}
	return svc.List()
}

// CreateAdminUser registers a new console account
func (a *App) CreateAdminUser(username, password string) (*adminusers.AdminUser, error) {
	svc, err := a.currentAdminUserService()
	if err != nil {
		return nil, err
	}
	return svc.Create(username, password)
}

// DeleteAdminUser removes a console account
func (a *App) DeleteAdminUser(userID string) error {
	svc, err := a.currentAdminUserService()
	if err != nil {
		return err
	}
	return svc.Delete(userID)
}

func (a *App) currentAdminUserService() (*adminusers.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.adminUserService == nil {
		return nil, errors.New("no backend connected")
	}
	return a.adminUserService, nil
}

// Scheduler Methods

// ListScheduledJobs retrieves all scheduled jobs
func (a *App) ListScheduledJobs() ([]scheduler.JobListResponse, error) {
	return a.schedulerService.ListJobs()
}

// UpsertScheduledJob creates or updates a scheduled job
func (a *App) UpsertScheduledJob(req scheduler.UpsertJobRequest) (string, error) {
	return a.schedulerService.UpsertJob(req)
}

// DeleteScheduledJob removes a scheduled job
func (a *App) DeleteScheduledJob(jobID string) error {
	return a.schedulerService.DeleteJob(jobID)
}

// ListTaskHistory retrieves recent background task executions
func (a *App) ListTaskHistory(limit int) ([]TaskHistoryResponse, error) {
	if limit <= 0 {
		limit = 10
	}

	var tasks []models.TaskProgress
	if err := a.db.Order("created_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}

	history := make([]TaskHistoryResponse, 0, len(tasks))
	for _, task := range tasks {
		entry := TaskHistoryResponse{
			TaskID:    task.ID,
			TaskType:  task.TaskType,
			Status:    task.Status,
			StartedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Progress:  task.Progress,
			Results:   task.Results,
		}
		if task.UpdatedAt.After(task.CreatedAt) {
			completedAt := task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
			entry.CompletedAt = &completedAt
		}
		history = append(history, entry)
	}

	return history, nil
}

// ====================================================================================
// REQUEST/RESPONSE TYPES
// ====================================================================================

// CreateProfileRequest represents a request to create/update a connection profile
type CreateProfileRequest struct {
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"` // Plain text, will be encrypted
}

// TestConnectionRequest represents a connection test request
type TestConnectionRequest struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// TestConnectionResponse represents the test result
type TestConnectionResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// StagedImportResponse is what the staging screen renders after an upload
type StagedImportResponse struct {
	FileName   string               `json:"file_name"`
	ValidCount int                  `json:"valid_count"`
	ErrorCount int                  `json:"error_count"`
	WarnCount  int                  `json:"warn_count"`
	Errors     []csvimport.RowIssue `json:"errors"`
	Warnings   []csvimport.RowIssue `json:"warnings"`
	Preview    []csvimport.DraftRow `json:"preview"`
	SubmitCap  int                  `json:"submit_cap"`
}

// TaskHistoryResponse represents one background task run in the history
type TaskHistoryResponse struct {
	TaskID      string  `json:"task_id"`
	TaskType    string  `json:"task_type"`
	Status      string  `json:"status"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
	Progress    int     `json:"progress"`
	Results     string  `json:"results"` // JSON blob from the job
}
