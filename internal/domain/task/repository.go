package task

import "context"

// ListFilter narrows and orders task listings.
type ListFilter struct {
	Search   string
	SortBy   string
	SortDesc bool
	Offset   int
	Limit    int
}

// Repository defines persistence behaviours for tasks.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, taskID int64) (*Task, error)
	// List returns one page of tasks plus the total count matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Task, int, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, taskID int64) error
	// TitlesExisting reports which of the given titles are already stored.
	TitlesExisting(ctx context.Context, titles []string) ([]string, error)
	// CreateBatch inserts all tasks, assigning their TaskIDs.
	CreateBatch(ctx context.Context, tasks []*Task) error
}
