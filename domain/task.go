package domain

import (
	"errors"
	"fmt"
	"sort"
)

// Task statuses, in board order.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusReview     = "REVIEW"
	StatusDone       = "DONE"
)

// Task priorities, lowest to highest.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Task represents a single tracked item. AssigneeID is set at creation and
// never changes afterwards; it is the sole basis for authorization.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	AssigneeID  string `json:"assigneeId"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// ValidStatus reports whether s is one of the known task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the known task priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.Title == nil && p.Description == nil
}

// Validate checks every present field against the task constraints.
func (p TaskPatch) Validate() error {
	if p.Status != nil && !ValidStatus(*p.Status) {
		return fmt.Errorf("invalid status %q", *p.Status)
	}
	if p.Priority != nil && !ValidPriority(*p.Priority) {
		return fmt.Errorf("invalid priority %q", *p.Priority)
	}
	if p.Title != nil && *p.Title == "" {
		return errors.New("title must not be empty")
	}
	return nil
}

// Apply merges the patch into t. The caller is responsible for bumping
// UpdatedAt.
func (p TaskPatch) Apply(t *Task) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
}

// TaskStats holds the dashboard aggregates for one user.
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Review     int `json:"review"`
	Urgent     int `json:"urgent"`
}

// ComputeStats derives the dashboard counters from a user's tasks.
func ComputeStats(tasks []Task) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusDone:
			stats.Completed++
		case StatusInProgress:
			stats.InProgress++
		case StatusReview:
			stats.Review++
		}
		if t.Priority == PriorityUrgent {
			stats.Urgent++
		}
	}
	return stats
}

var priorityRank = map[string]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// RecentTasks returns up to n tasks ordered by priority descending, then
// creation time descending.
func RecentTasks(tasks []Task, n int) []Task {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := priorityRank[sorted[i].Priority], priorityRank[sorted[j].Priority]
		if pi != pj {
			return pi > pj
		}
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
