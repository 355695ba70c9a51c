package domain

// Task event types published to the task events queue.
const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
)

// TaskEvent notifies downstream consumers of a completed task mutation.
// Publication is best effort and never blocks the originating request.
type TaskEvent struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId"`
	Type   string `json:"type"`
	Time   int64  `json:"time"`
}
