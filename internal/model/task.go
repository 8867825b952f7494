package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// DateLayout is the calendar-date format used for due dates
const DateLayout = "2006-01-02"

// Task represents a unit of work assigned to a user
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     time.Time    `json:"due_date"`
	Priority    string       `json:"priority"`
	Status      string       `json:"status"`
	AssignedTo  int64        `json:"assigned_to"`
	CreatedBy   int64        `json:"created_by"`
	Assignee    *UserSummary `json:"assignee,omitempty"` // Populated on reads
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// VisibleTo reports whether userID created the task or is assigned to it
func (t *Task) VisibleTo(userID int64) bool {
	return t.CreatedBy == userID || t.AssignedTo == userID
}

// CreateTaskRequest is used for creating a new task
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	DueDate     string `json:"due_date" binding:"required"`
	Priority    string `json:"priority" binding:"omitempty,task_priority"`
	Status      string `json:"status" binding:"omitempty,task_status"`
	AssignedTo  int64  `json:"assigned_to" binding:"required,gt=0"`
}

// UpdateTaskRequest carries a partial update; nil fields are left untouched
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,min=1"`
	Description *string `json:"description,omitempty" binding:"omitempty,min=1"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty" binding:"omitempty,task_priority"`
	Status      *string `json:"status,omitempty" binding:"omitempty,task_status"`
	AssignedTo  *int64  `json:"assigned_to,omitempty" binding:"omitempty,gt=0"`
}

// TaskPatch is the store-level form of UpdateTaskRequest with the due date parsed
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *string
	Status      *string
	AssignedTo  *int64
}

// TaskFilters narrows a task listing
type TaskFilters struct {
	Priority *string
	Status   *string
	DueDate  *time.Time
}

// IsValidPriority reports whether p is one of the known priorities
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// IsValidStatus reports whether s is one of the known statuses
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseDueDate accepts YYYY-MM-DD or RFC 3339 and truncates to a UTC calendar date.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}
