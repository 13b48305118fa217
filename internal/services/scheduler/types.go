package scheduler

// Job types the scheduler knows how to run
const (
	// JobTypeRetryFailedReports re-triggers report generation for every
	// consultation stuck in report_failed
	JobTypeRetryFailedReports = "retry_failed_reports"
	// JobTypeStatsSnapshot records a dashboard stats snapshot locally
	JobTypeStatsSnapshot = "stats_snapshot"
)

// JobListResponse represents a scheduled job in list responses
type JobListResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	JobType   string  `json:"job_type"`
	Cron      string  `json:"cron"`
	Timezone  string  `json:"timezone"`
	Enabled   bool    `json:"enabled"`
	LastRunAt *string `json:"last_run_at"` // ISO 8601 format
	NextRun   *string `json:"next_run"`    // ISO 8601 format
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// UpsertJobRequest represents a request to create or update a scheduled job
type UpsertJobRequest struct {
	Name     string      `json:"name"`
	JobType  string      `json:"job_type"` // "retry_failed_reports" or "stats_snapshot"
	Cron     string      `json:"cron"`
	Timezone string      `json:"timezone"`
	Enabled  bool        `json:"enabled"`
	Payload  interface{} `json:"payload"` // Can be map or string
}

// RetryJobPayload represents the payload for a retry_failed_reports job
type RetryJobPayload struct {
	BatchSize int `json:"batch_size"` // per-request trigger batch, capped at 100
	MaxItems  int `json:"max_items"`  // stop after this many retriggers, 0 = no limit
}
