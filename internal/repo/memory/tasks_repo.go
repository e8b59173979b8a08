package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/google/uuid"
)

type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]task.Task
	seq   map[string]int // insertion order, tiebreaker for equal timestamps
	next  int
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]task.Task),
		seq:   make(map[string]int),
	}
}

func (r *TasksRepo) Create(ctx context.Context, owner string, req task.CreateTaskRequest) (task.Task, error) {
	now := time.Now()
	t := task.Task{
		ID:          uuid.NewString(),
		Description: req.Description,
		Completed:   req.Completed,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.items[t.ID] = t
	r.seq[t.ID] = r.next
	r.next++
	r.mu.Unlock()

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, owner string, filter task.ListTasksFilter) ([]task.Task, error) {
	r.mu.RLock()

	out := make([]task.Task, 0)

	for _, t := range r.items {
		if t.Owner != owner {
			continue
		}

		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}

		out = append(out, t)
	}

	r.mu.RUnlock()

	r.sortTasks(out, filter)

	// offset+limit after sorting, same semantics as SQL
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []task.Task{}, nil
		}
		out = out[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r *TasksRepo) sortTasks(out []task.Task, filter task.ListTasksFilter) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	less := func(a, b task.Task) bool {
		switch filter.SortBy {
		case "description":
			if a.Description != b.Description {
				return a.Description < b.Description
			}
		case "completed":
			if a.Completed != b.Completed {
				return !a.Completed
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return r.seq[a.ID] < r.seq[b.ID]
	}

	sort.SliceStable(out, func(i, j int) bool {
		if filter.SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
}

func (r *TasksRepo) GetByID(ctx context.Context, owner, id string) (task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok || t.Owner != owner {
		return task.Task{}, task.ErrNotFound
	}

	return t, nil
}

func (r *TasksRepo) Update(ctx context.Context, owner, id string, req task.UpdateTaskRequest) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok || t.Owner != owner {
		return task.Task{}, task.ErrNotFound
	}

	if req.Description != nil {
		t.Description = *req.Description
	}

	if req.Completed != nil {
		t.Completed = *req.Completed
	}

	t.UpdatedAt = time.Now()
	r.items[id] = t

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok || t.Owner != owner {
		return task.ErrNotFound
	}

	delete(r.items, id)
	delete(r.seq, id)

	return nil
}

func (r *TasksRepo) DeleteForOwner(ctx context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.items {
		if t.Owner == owner {
			delete(r.items, id)
			delete(r.seq, id)
		}
	}

	return nil
}
