package model

import (
	"time"
)

// RunStatus 批量运行状态
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// BatchRun 批量运行记录模型
type BatchRun struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	RunID               string     `gorm:"uniqueIndex;not null" json:"run_id"`
	Status              RunStatus  `gorm:"default:'running';index" json:"status"`
	Discovered          int        `json:"discovered"`
	Succeeded           int        `json:"succeeded"`
	ValidationRejected  int        `json:"validation_rejected"`
	TranscriptionFailed int        `json:"transcription_failed"`
	StorageFailed       int        `json:"storage_failed"`
	Skipped             int        `json:"skipped"`
	ErrorMsg            string     `json:"error_msg,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}
