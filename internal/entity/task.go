package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/constants"
)

// UploadTask tracks one file moving through the pipeline. Exactly one task
// exists per pending file, keyed by file name; it is removed on success and
// retained with Error set on failure until the user clears it.
type UploadTask struct {
	ID           uuid.UUID            `json:"id"`
	FileName     string               `json:"fileName"`
	FileSize     int64                `json:"fileSize"`
	Status       constants.TaskStatus `json:"status"`
	Progress     int                  `json:"progress"`
	IsProcessing bool                 `json:"isProcessing"`
	Error        string               `json:"error,omitempty"`
	SubmittedAt  time.Time            `json:"submittedAt"`
}
