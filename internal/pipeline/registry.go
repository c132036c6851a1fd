package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
)

// Registry tracks upload tasks keyed by file identity (the file name).
// Exactly one task exists per pending file; successful tasks are removed,
// failed ones stay until the user clears them or re-submits the file.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*tracked
}

type tracked struct {
	task   entity.UploadTask
	cancel context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*tracked)}
}

// Register creates a pending task for fileName and a cancelable context its
// pipeline run must use. A file that is already pending (or failed and not
// yet cleared) is re-registered only after its old entry is replaced here,
// so re-submitting a failed file retries it.
func (r *Registry) Register(parent context.Context, fileName string, size int64) (entity.UploadTask, context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tasks[fileName]; ok {
		if existing.task.IsProcessing || existing.task.Status == constants.TaskPending {
			return entity.UploadTask{}, nil, fmt.Errorf("%w: %s", common.ErrDuplicateTask, fileName)
		}
		// failed leftover; cancel its context and let the retry replace it
		existing.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	task := entity.UploadTask{
		ID:          uuid.New(),
		FileName:    fileName,
		FileSize:    size,
		Status:      constants.TaskPending,
		Progress:    constants.ProgressStarted,
		SubmittedAt: time.Now().UTC(),
	}
	r.tasks[fileName] = &tracked{task: task, cancel: cancel}
	return task, ctx, nil
}

// Advance moves a task to the given stage and progress checkpoint. No-op if
// the task was removed meanwhile.
func (r *Registry) Advance(fileName string, status constants.TaskStatus, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[fileName]
	if !ok {
		return
	}
	t.task.Status = status
	t.task.Progress = progress
	t.task.IsProcessing = true
}

// Fail parks the task in the failed state with a human-readable message.
func (r *Registry) Fail(fileName, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[fileName]
	if !ok {
		return
	}
	t.task.Status = constants.TaskFailed
	t.task.IsProcessing = false
	t.task.Error = message
}

// Complete removes a successfully finished task from the pending set.
func (r *Registry) Complete(fileName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tasks[fileName]; ok {
		t.task.Status = constants.TaskDone
		t.task.Progress = constants.ProgressDone
		delete(r.tasks, fileName)
	}
}

// Remove clears a task by id and cancels any in-flight collaborator call.
func (r *Registry) Remove(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, t := range r.tasks {
		if t.task.ID == id {
			t.cancel()
			delete(r.tasks, name)
			return nil
		}
	}
	return common.ErrNotFound
}

// Get returns the pending task for fileName, if any.
func (r *Registry) Get(fileName string) (entity.UploadTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[fileName]
	if !ok {
		return entity.UploadTask{}, false
	}
	return t.task, true
}

// List snapshots all pending and failed tasks, oldest first.
func (r *Registry) List() []entity.UploadTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.UploadTask, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.task)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}
