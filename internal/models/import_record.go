package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportRecord is the audit trail of a CSV bulk submission
type ImportRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	ProfileID    string    `gorm:"not null;column:profile_id" json:"profile_id"`
	FileName     string    `gorm:"column:file_name" json:"file_name"`
	TotalRows    int       `gorm:"column:total_rows" json:"total_rows"`       // data rows parsed (header excluded)
	ValidRows    int       `gorm:"column:valid_rows" json:"valid_rows"`       // rows that passed validation
	ErrorCount   int       `gorm:"column:error_count" json:"error_count"`     // rows excluded by validation
	WarningCount int       `gorm:"column:warning_count" json:"warning_count"` // rows kept with missing optional fields
	Created      int       `json:"created"`                                   // consultations created by the backend
	CreatedIDs   string    `gorm:"type:text;column:created_ids" json:"-"`     // JSON array of consultation IDs
	Status       string    `gorm:"not null;default:submitted" json:"status"`  // submitted, failed
	ErrorMessage string    `gorm:"type:text;column:error_message" json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (ir *ImportRecord) BeforeCreate(tx *gorm.DB) error {
	if ir.ID == "" {
		ir.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (ImportRecord) TableName() string {
	return "import_records"
}
