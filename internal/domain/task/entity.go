package task

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a task could not be located.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidID signals a non-numeric task identifier.
	ErrInvalidID = errors.New("invalid task ID format")
	// ErrValidation wraps field-level validation failures.
	ErrValidation = errors.New("validation failed")
)

// Default field values applied when a task is created without them.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// Task captures a single task record. TaskID is assigned by storage.
type Task struct {
	TaskID      int64     `json:"taskId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
