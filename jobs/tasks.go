package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan re-verifies every persisted distribution.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskMailDigest sends the weekly partner digest email.
	TaskMailDigest = "mail:digest"
)

// IntegrityScanPayload tunes the distribution verification pass.
type IntegrityScanPayload struct {
	// Tolerance is the absolute drift in dollars treated as rounding noise.
	Tolerance float64 `json:"tolerance"`
}

// DigestPayload addresses the weekly digest.
type DigestPayload struct {
	Recipients []string `json:"recipients"`
}

// NewIntegrityScanTask constructs an Asynq task for the ledger scan.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}

// NewDigestTask constructs an Asynq task for the weekly digest.
func NewDigestTask(payload DigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMailDigest, data), nil
}
