package task

import (
	"errors"
	"time"
)

type Task struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ErrNotFound covers both "no such task" and "not yours"; callers must not be
// able to tell the two apart.
var ErrNotFound = errors.New("task not found")

type CreateTaskRequest struct {
	Description string `json:"description" binding:"required,min=1,max=1000"`
	Completed   bool   `json:"completed"`
}

// UpdateTaskRequest limits a PATCH to {description, completed}; any other key
// is rejected at the bind boundary.
type UpdateTaskRequest struct {
	Description *string `json:"description" binding:"omitempty,min=1,max=1000"`
	Completed   *bool   `json:"completed"`
}

func (r UpdateTaskRequest) Empty() bool {
	return r.Description == nil && r.Completed == nil
}

// with pointers if optional, it will be nil
type ListTasksFilter struct {
	Completed *bool
	Limit     int
	Offset    int
	SortBy    string
	SortDesc  bool
}
