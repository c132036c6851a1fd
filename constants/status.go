package constants

// TaskStatus is the canonical per-file pipeline state for an upload task.
type TaskStatus string

// Stable values (surfaced over the API as exact strings).
const (
	TaskPending    TaskStatus = "PENDING"    // registered, not started
	TaskExtracting TaskStatus = "EXTRACTING" // page text extraction in flight
	TaskParsing    TaskStatus = "PARSING"    // LLM parse in flight
	TaskDecoding   TaskStatus = "DECODING"   // decoding the structured payload
	TaskPersisting TaskStatus = "PERSISTING" // upserting the assembled record
	TaskDone       TaskStatus = "DONE"       // terminal success
	TaskFailed     TaskStatus = "FAILED"     // terminal failure
)

// Progress checkpoints reported while a task advances.
const (
	ProgressStarted   = 0
	ProgressExtracted = 33
	ProgressParsed    = 67
	ProgressDone      = 100
)
