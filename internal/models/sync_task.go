package models

import "time"

// Sync task statuses in the sync_queue table.
const (
	SyncPending    = "pending"
	SyncRetry      = "retry"
	SyncDone       = "done"
	SyncDeadLetter = "dead_letter"
)

// SyncTask represents a queued mirror job for the Sheets worker.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	EntityKind  string     `json:"entity_kind"`
	EntityID    int64      `json:"entity_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
