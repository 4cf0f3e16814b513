package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "taskboard/backend/internal/domain/task"

	"github.com/go-playground/validator/v10"
)

// Service encapsulates task use cases.
type Service struct {
	repo     domain.Repository
	validate *validator.Validate
	nowFunc  func() time.Time
}

// NewService constructs a task service.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		nowFunc:  time.Now,
	}
}

// Input contains the payload for task creation and full updates.
type Input struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority" validate:"required"`
}

// ListInput captures paging, sorting, and search parameters.
type ListInput struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

// ListResult is one page of tasks plus paging metadata.
type ListResult struct {
	Tasks       []*domain.Task `json:"tasks"`
	TotalTasks  int            `json:"totalTasks"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

// Create stores a new task after validation.
func (s *Service) Create(ctx context.Context, input Input) (*domain.Task, error) {
	t, err := s.buildTask(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves a page of tasks.
func (s *Service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	sortBy := input.SortBy
	if sortBy == "" {
		sortBy = "taskId"
	}

	tasks, total, err := s.repo.List(ctx, domain.ListFilter{
		Search:   strings.TrimSpace(input.Search),
		SortBy:   sortBy,
		SortDesc: strings.EqualFold(input.SortOrder, "desc"),
		Offset:   (input.Page - 1) * input.Limit,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, err
	}

	totalPages := (total + input.Limit - 1) / input.Limit
	return &ListResult{
		Tasks:       tasks,
		TotalTasks:  total,
		TotalPages:  totalPages,
		CurrentPage: input.Page,
	}, nil
}

// Get fetches a task by its numeric id.
func (s *Service) Get(ctx context.Context, taskID int64) (*domain.Task, error) {
	return s.repo.GetByID(ctx, taskID)
}

// Update replaces a task's fields after the same validation as Create.
func (s *Service) Update(ctx context.Context, taskID int64, input Input) (*domain.Task, error) {
	existing, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildTask(input)
	if err != nil {
		return nil, err
	}
	updated.TaskID = existing.TaskID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.nowFunc().UTC()

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, taskID int64) error {
	return s.repo.Delete(ctx, taskID)
}

// MarkComplete sets a task's status to Completed.
func (s *Service) MarkComplete(ctx context.Context, taskID int64) (*domain.Task, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	t.Status = domain.StatusCompleted
	t.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ImportError reports why a bulk import payload was rejected.
type ImportError struct {
	Reason     string
	Details    []string
	Duplicates []string
	Existing   []string
}

func (e *ImportError) Error() string { return e.Reason }

// BulkImport validates and inserts a batch of tasks. The whole batch is
// rejected when any item is invalid, when the batch repeats a title, or when
// a title already exists in storage.
func (s *Service) BulkImport(ctx context.Context, items []Input) ([]*domain.Task, error) {
	var details []string
	tasks := make([]*domain.Task, 0, len(items))
	now := s.nowFunc().UTC()

	for i, item := range items {
		switch {
		case strings.TrimSpace(item.Title) == "":
			details = append(details, fmt.Sprintf("Task at index %d: Title is required", i))
			continue
		case item.DueDate.IsZero():
			details = append(details, fmt.Sprintf("Task at index %d: Due date is required", i))
			continue
		case strings.TrimSpace(item.Priority) == "":
			details = append(details, fmt.Sprintf("Task at index %d: Priority is required", i))
			continue
		}

		status := item.Status
		if status == "" {
			status = domain.StatusPending
		}
		tasks = append(tasks, &domain.Task{
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			DueDate:     item.DueDate,
			Status:      status,
			Priority:    item.Priority,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(details) > 0 {
		return nil, &ImportError{Reason: "Validation errors", Details: details}
	}

	seen := make(map[string]bool, len(tasks))
	var duplicates []string
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.Title] {
			duplicates = append(duplicates, t.Title)
			continue
		}
		seen[t.Title] = true
		titles = append(titles, t.Title)
	}
	if len(duplicates) > 0 {
		return nil, &ImportError{Reason: "Duplicate titles in import batch", Duplicates: dedupe(duplicates)}
	}

	existing, err := s.repo.TitlesExisting(ctx, titles)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &ImportError{Reason: "Some tasks already exist", Existing: existing}
	}

	if err := s.repo.CreateBatch(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Service) buildTask(input Input) (*domain.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, ", "))
		}
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.StatusPending
	}
	now := s.nowFunc().UTC()
	return &domain.Task{
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Status:      status,
		Priority:    input.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
