package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"consultdesk/internal/models"
	"consultdesk/internal/services/consultations"
	"consultdesk/internal/services/dashboard"
)

// retryBatchCap matches the backend's bulk trigger limit
const retryBatchCap = 100

// ConsultationServiceInterface defines the consultation operations jobs need
type ConsultationServiceInterface interface {
	ListPage(req consultations.ListRequest) (*consultations.ListPage, error)
	GenerateReports(ids []string) (*consultations.GenerateReportsResponse, error)
}

// DashboardServiceInterface defines the dashboard operations jobs need
type DashboardServiceInterface interface {
	GetStats() (*dashboard.Stats, error)
}

// Service handles scheduled job management and execution
type Service struct {
	db     *gorm.DB
	ctx    context.Context
	cron   *cron.Cron
	jobs   map[string]cron.EntryID // jobID -> cron entry ID
	jobsMu sync.RWMutex

	servicesMu    sync.RWMutex
	consultations ConsultationServiceInterface
	dashboard     DashboardServiceInterface
}

// NewService creates a new scheduler service
func NewService(db *gorm.DB, ctx context.Context) *Service {
	// Create cron scheduler with seconds support
	c := cron.New(cron.WithSeconds())

	return &Service{
		db:   db,
		ctx:  ctx,
		cron: c,
		jobs: make(map[string]cron.EntryID),
	}
}

// SetBackendServices wires the connected backend services in. Jobs that fire
// before a profile is connected skip their work with a warning.
func (s *Service) SetBackendServices(c ConsultationServiceInterface, d DashboardServiceInterface) {
	s.servicesMu.Lock()
	s.consultations = c
	s.dashboard = d
	s.servicesMu.Unlock()
}

// Start initializes the scheduler and loads enabled jobs from database
func (s *Service) Start() error {
	log.Println("Starting scheduler...")

	if err := s.db.AutoMigrate(&models.ScheduledJob{}); err != nil {
		return fmt.Errorf("failed to migrate scheduled_jobs table: %w", err)
	}

	// Start the cron scheduler
	s.cron.Start()
	log.Println("Cron scheduler started")

	// Load all enabled jobs from database
	var jobs []models.ScheduledJob
	if err := s.db.Where("enabled = ?", true).Find(&jobs).Error; err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	for _, job := range jobs {
		if err := s.scheduleJob(&job); err != nil {
			log.Printf("WARNING: Failed to schedule job %s (%s): %v", job.Name, job.ID, err)
		} else {
			log.Printf("Scheduled job: %s (%s) with cron: %s", job.Name, job.ID, job.Cron)
		}
	}

	log.Printf("Scheduler started with %d enabled jobs", len(jobs))
	return nil
}

// Stop gracefully stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		log.Println("Scheduler stopped")
	}
}

// ListJobs retrieves all scheduled jobs
func (s *Service) ListJobs() ([]JobListResponse, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	responses := make([]JobListResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.toJobListResponse(&job)
	}

	return responses, nil
}

// UpsertJob creates or updates a scheduled job
func (s *Service) UpsertJob(req UpsertJobRequest) (string, error) {
	// Validate required fields
	if req.Name == "" || req.JobType == "" || req.Cron == "" {
		return "", fmt.Errorf("name, job_type, and cron are required")
	}
	if req.JobType != JobTypeRetryFailedReports && req.JobType != JobTypeStatsSnapshot {
		return "", fmt.Errorf("unknown job type: %s", req.JobType)
	}

	// Normalize and validate cron expression (convert 5-field to 6-field)
	normalizedCron, err := normalizeCron(req.Cron)
	if err != nil {
		return "", err
	}
	req.Cron = normalizedCron

	// Find or create job
	var job models.ScheduledJob
	result := s.db.Where("name = ?", req.Name).First(&job)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			job = models.ScheduledJob{
				ID:   uuid.New().String(),
				Name: req.Name,
			}
		} else {
			return "", fmt.Errorf("failed to query job: %w", result.Error)
		}
	}

	// Update job fields
	job.JobType = req.JobType
	job.Cron = req.Cron
	job.Timezone = req.Timezone
	if job.Timezone == "" {
		job.Timezone = "UTC"
	}
	job.Enabled = req.Enabled

	// Handle payload
	payloadStr := ""
	if req.Payload != nil {
		switch p := req.Payload.(type) {
		case string:
			payloadStr = p
		default:
			data, err := json.Marshal(p)
			if err != nil {
				return "", fmt.Errorf("failed to marshal payload: %w", err)
			}
			payloadStr = string(data)
		}
	}
	job.Payload = payloadStr

	// Calculate next run time (cron parser uses the 6-field format stored in DB)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(job.Cron)
	if err != nil {
		return "", fmt.Errorf("failed to parse cron for next run: %w", err)
	}
	nextRun := schedule.Next(time.Now())
	job.NextRunAt = &nextRun

	// Save to database
	if result.Error == gorm.ErrRecordNotFound {
		if err := s.db.Create(&job).Error; err != nil {
			return "", fmt.Errorf("failed to create job: %w", err)
		}
	} else {
		if err := s.db.Save(&job).Error; err != nil {
			return "", fmt.Errorf("failed to update job: %w", err)
		}
	}

	// Reschedule in cron
	if err := s.rescheduleJob(job.ID); err != nil {
		return "", fmt.Errorf("failed to reschedule job: %w", err)
	}

	return job.ID, nil
}

// DeleteJob removes a scheduled job
func (s *Service) DeleteJob(jobID string) error {
	// Remove from cron if exists
	s.jobsMu.Lock()
	if entryID, exists := s.jobs[jobID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, jobID)
	}
	s.jobsMu.Unlock()

	// Delete from database
	if err := s.db.Delete(&models.ScheduledJob{}, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return nil
}

// scheduleJob adds a job to the cron scheduler
func (s *Service) scheduleJob(job *models.ScheduledJob) error {
	if !job.Enabled {
		return nil
	}

	// Remove existing entry if present
	s.jobsMu.Lock()
	if entryID, exists := s.jobs[job.ID]; exists {
		s.cron.Remove(entryID)
	}
	s.jobsMu.Unlock()

	// Add job to cron
	entryID, err := s.cron.AddFunc(job.Cron, func() {
		s.executeJob(job.ID)
	})

	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = entryID
	s.jobsMu.Unlock()

	return nil
}

// rescheduleJob reloads a job from database and reschedules it
func (s *Service) rescheduleJob(jobID string) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Job was deleted, remove from cron
			s.jobsMu.Lock()
			if entryID, exists := s.jobs[jobID]; exists {
				s.cron.Remove(entryID)
				delete(s.jobs, jobID)
			}
			s.jobsMu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}

	return s.scheduleJob(&job)
}

// executeJob runs a scheduled job
func (s *Service) executeJob(jobID string) {
	log.Printf("Executing scheduled job: %s", jobID)

	// Load job from database
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		log.Printf("ERROR: Failed to load job %s: %v", jobID, err)
		return
	}

	// Update last run time
	now := time.Now()
	job.LastRunAt = &now

	// Calculate next run time (cron parser uses the 6-field format stored in DB)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(job.Cron)
	if err != nil {
		log.Printf("WARNING: Failed to parse cron for next run: %v", err)
	} else {
		nextRun := schedule.Next(now)
		job.NextRunAt = &nextRun
	}

	if err := s.db.Save(&job).Error; err != nil {
		log.Printf("WARNING: Failed to update job run times: %v", err)
	}

	// Parse payload
	var payload map[string]interface{}
	if job.Payload != "" {
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			log.Printf("ERROR: Failed to parse job payload: %v", err)
			return
		}
	}

	// Execute based on job type
	switch job.JobType {
	case JobTypeRetryFailedReports:
		s.runRetryFailedReports(payload)
	case JobTypeStatsSnapshot:
		s.runStatsSnapshot()
	default:
		log.Printf("WARNING: Unknown job type: %s", job.JobType)
	}

	log.Printf("Completed scheduled job: %s", jobID)
}

// runRetryFailedReports collects every consultation in report_failed and asks
// the backend to regenerate its report, in batches of at most retryBatchCap
func (s *Service) runRetryFailedReports(payload map[string]interface{}) {
	s.servicesMu.RLock()
	consultationService := s.consultations
	s.servicesMu.RUnlock()

	if consultationService == nil {
		log.Printf("WARNING: Retry job skipped, no backend connected")
		return
	}

	batchSize := retryBatchCap
	if size, ok := payload["batch_size"].(float64); ok && int(size) > 0 && int(size) < retryBatchCap {
		batchSize = int(size)
	}
	maxItems := 0
	if m, ok := payload["max_items"].(float64); ok && int(m) > 0 {
		maxItems = int(m)
	}

	taskID := s.recordTaskStart(JobTypeRetryFailedReports)

	// Collect failed IDs page by page
	var failedIDs []string
	page := 1
	for {
		listPage, err := consultationService.ListPage(consultations.ListRequest{
			Filters:  consultations.Filters{Status: string(consultations.StatusReportFailed)},
			Page:     page,
			PageSize: retryBatchCap,
		})
		if err != nil {
			log.Printf("ERROR: Retry job failed to list consultations: %v", err)
			s.recordTaskResult(taskID, "error", map[string]interface{}{"error": err.Error()})
			return
		}
		for _, item := range listPage.Items {
			failedIDs = append(failedIDs, item.ID)
			if maxItems > 0 && len(failedIDs) >= maxItems {
				break
			}
		}
		if (maxItems > 0 && len(failedIDs) >= maxItems) || len(listPage.Items) < retryBatchCap {
			break
		}
		page++
	}

	if len(failedIDs) == 0 {
		log.Printf("Retry job found no failed reports")
		s.recordTaskResult(taskID, "completed", map[string]interface{}{"triggered": 0})
		return
	}

	triggered := 0
	skipped := 0
	for start := 0; start < len(failedIDs); start += batchSize {
		end := start + batchSize
		if end > len(failedIDs) {
			end = len(failedIDs)
		}

		resp, err := consultationService.GenerateReports(failedIDs[start:end])
		if err != nil {
			log.Printf("WARNING: Retry batch failed: %v", err)
			continue
		}
		triggered += resp.Triggered
		skipped += len(resp.Skipped)
	}

	log.Printf("Retry job re-triggered %d failed reports (%d skipped)", triggered, skipped)
	s.recordTaskResult(taskID, "completed", map[string]interface{}{
		"found":     len(failedIDs),
		"triggered": triggered,
		"skipped":   skipped,
	})
}

// runStatsSnapshot fetches the dashboard aggregate and archives it locally
func (s *Service) runStatsSnapshot() {
	s.servicesMu.RLock()
	dashboardService := s.dashboard
	s.servicesMu.RUnlock()

	if dashboardService == nil {
		log.Printf("WARNING: Stats snapshot skipped, no backend connected")
		return
	}

	taskID := s.recordTaskStart(JobTypeStatsSnapshot)

	stats, err := dashboardService.GetStats()
	if err != nil {
		log.Printf("ERROR: Stats snapshot failed: %v", err)
		s.recordTaskResult(taskID, "error", map[string]interface{}{"error": err.Error()})
		return
	}

	s.recordTaskResult(taskID, "completed", map[string]interface{}{
		"total_consultations": stats.TotalConsultations,
		"sent_count":          stats.SentCount,
		"view_rate":           stats.ViewRate,
		"cta_hot":             stats.CTAHot,
		"cta_warm":            stats.CTAWarm,
		"cta_cool":            stats.CTACool,
	})
	log.Printf("Stats snapshot recorded: %d consultations, view rate %.1f%%",
		stats.TotalConsultations, stats.ViewRate)
}

func (s *Service) recordTaskStart(taskType string) string {
	taskID := uuid.New().String()
	task := models.TaskProgress{
		ID:       taskID,
		TaskType: taskType,
		Status:   "running",
	}
	if err := s.db.Create(&task).Error; err != nil {
		log.Printf("WARNING: Failed to record task start: %v", err)
	}
	return taskID
}

func (s *Service) recordTaskResult(taskID, status string, results map[string]interface{}) {
	data, err := json.Marshal(results)
	if err != nil {
		log.Printf("WARNING: Failed to marshal task results: %v", err)
		data = []byte("{}")
	}

	updates := map[string]interface{}{
		"status":   status,
		"progress": 100,
		"results":  string(data),
	}
	if err := s.db.Model(&models.TaskProgress{}).Where("id = ?", taskID).Updates(updates).Error; err != nil {
		log.Printf("WARNING: Failed to record task result: %v", err)
	}
}

// normalizeCron converts 5-field cron to 6-field format by prepending seconds
// 5-field: "minute hour day month dow" (standard cron)
// 6-field: "second minute hour day month dow" (robfig/cron with WithSeconds)
func normalizeCron(cronExpr string) (string, error) {
	// Trim whitespace
	cronExpr = strings.TrimSpace(cronExpr)

	// Check if it's already 6-field
	fields := strings.Fields(cronExpr)
	if len(fields) == 6 {
		// Already 6-field, try to validate it
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cronExpr); err == nil {
			return cronExpr, nil // Valid 6-field expression
		}
	}

	// Assume 5-field, validate and convert
	if len(fields) == 5 {
		// Validate as standard 5-field cron
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		// Prepend seconds (0 = run at 0 seconds of the minute)
		return "0 " + cronExpr, nil
	}

	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}

func (s *Service) toJobListResponse(job *models.ScheduledJob) JobListResponse {
	resp := JobListResponse{
		ID:        job.ID,
		Name:      job.Name,
		JobType:   job.JobType,
		Cron:      job.Cron,
		Timezone:  job.Timezone,
		Enabled:   job.Enabled,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}

	if job.LastRunAt != nil {
		lastRun := job.LastRunAt.Format(time.RFC3339)
		resp.LastRunAt = &lastRun
	}

	if job.NextRunAt != nil {
		nextRun := job.NextRunAt.Format(time.RFC3339)
		resp.NextRun = &nextRun
	}

	return resp
}
