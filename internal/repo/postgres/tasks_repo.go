package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// sortColumns whitelists what may end up in ORDER BY; anything else falls back
// to created_at.
var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"description": "description",
	"completed":   "completed",
}

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task

	err := row.Scan(&t.ID, &t.Description, &t.Completed, &t.Owner, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, owner string, req task.CreateTaskRequest) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.create", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx,
			`INSERT INTO tasks(id, description, completed, owner, created_at, updated_at)
			 VALUES($1, $2, $3, $4, NOW(), NOW())
			 RETURNING id, description, completed, owner, created_at, updated_at`,
			uuid.NewString(), req.Description, req.Completed, owner,
		))
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

// List is always owner-scoped; the owner predicate is baked into the query,
// not appended from caller input.
func (r *TasksRepo) List(ctx context.Context, owner string, filter task.ListTasksFilter) ([]task.Task, error) {
	query := `SELECT id, description, completed, owner, created_at, updated_at
	FROM tasks
	WHERE owner = $1`

	args := []interface{}{owner}
	argsPosition := 2

	if filter.Completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argsPosition)
		args = append(args, *filter.Completed)
		argsPosition++
	}

	col, ok := sortColumns[filter.SortBy]
	if !ok {
		col = "created_at"
	}

	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}

	// id tiebreaker keeps pagination stable
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argsPosition)
		args = append(args, filter.Limit)
		argsPosition++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argsPosition)
		args = append(args, filter.Offset)
	}

	var out []task.Task

	err := r.observe("tasks.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]task.Task, 0)

		for rows.Next() {
			t, err := scanTask(rows)

			if err != nil {
				return err
			}

			out = append(out, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, owner, id string) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get_by_id", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx,
			`SELECT id, description, completed, owner, created_at, updated_at
			 FROM tasks WHERE id = $1 AND owner = $2`, id, owner))
		return err
	})

	return t, err
}

func (r *TasksRepo) Update(ctx context.Context, owner, id string, req task.UpdateTaskRequest) (task.Task, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id, owner}
	argsPosition := 3

	if req.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argsPosition))
		args = append(args, *req.Description)
		argsPosition++
	}

	if req.Completed != nil {
		sets = append(sets, fmt.Sprintf("completed = $%d", argsPosition))
		args = append(args, *req.Completed)
	}

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND owner = $2
		  RETURNING id, description, completed, owner, created_at, updated_at`

	var t task.Task

	err := r.observe("tasks.update", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	return t, err
}

func (r *TasksRepo) Delete(ctx context.Context, owner, id string) error {
	return r.observe("tasks.delete", func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM tasks WHERE id = $1 AND owner = $2`, id, owner)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return task.ErrNotFound
		}

		return nil
	})
}

// DeleteForOwner backs the account-deletion cascade.
func (r *TasksRepo) DeleteForOwner(ctx context.Context, owner string) error {
	return r.observe("tasks.delete_for_owner", func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE owner = $1`, owner)
		return err
	})
}
