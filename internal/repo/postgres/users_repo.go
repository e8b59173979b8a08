package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, age, tokens, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Age,
		&u.Tokens,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	if u.Tokens == nil {
		u.Tokens = []string{}
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string, age int) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users(id, name, email, password_hash, age, tokens, created_at, updated_at)
			 VALUES($1, $2, $3, $4, $5, '{}', NOW(), NOW())
			 RETURNING `+userColumns,
			uuid.NewString(), name, email, passwordHash, age,
		))
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	return u, err
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.User, 0)

		for rows.Next() {
			u, err := scanUser(rows)

			if err != nil {
				return err
			}

			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Update applies the typed patch; only the fields the patch can express are
// ever touched.
func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	argsPosition := 2

	if req.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argsPosition))
		args = append(args, *req.Name)
		argsPosition++
	}

	if req.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", argsPosition))
		args = append(args, *req.Email)
		argsPosition++
	}

	if req.Age != nil {
		sets = append(sets, fmt.Sprintf("age = $%d", argsPosition))
		args = append(args, *req.Age)
		argsPosition++
	}

	// the handler re-hashes before it gets here; raw passwords never reach SQL
	if passwordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", argsPosition))
		args = append(args, *passwordHash)
		argsPosition++
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + userColumns

	var u user.User

	err := r.observe("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.observe("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

// Token list operations. The list lives on the users row, so each of these is
// a single-row atomic write.

func (r *UsersRepo) AddToken(ctx context.Context, userID, token string) error {
	return r.observe("users.add_token", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET tokens = array_append(tokens, $2), updated_at = NOW() WHERE id = $1`,
			userID, token)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func (r *UsersRepo) RemoveToken(ctx context.Context, userID, token string) error {
	return r.observe("users.remove_token", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET tokens = array_remove(tokens, $2), updated_at = NOW() WHERE id = $1`,
			userID, token)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func (r *UsersRepo) ClearTokens(ctx context.Context, userID string) error {
	return r.observe("users.clear_tokens", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET tokens = '{}', updated_at = NOW() WHERE id = $1`, userID)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

// Avatar operations. The blob is kept out of the regular scans on purpose; it
// only moves over the wire on these three calls.

func (r *UsersRepo) SetAvatar(ctx context.Context, userID string, avatar []byte) error {
	return r.observe("users.set_avatar", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET avatar = $2, updated_at = NOW() WHERE id = $1`, userID, avatar)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func (r *UsersRepo) GetAvatar(ctx context.Context, userID string) ([]byte, error) {
	var avatar []byte

	err := r.observe("users.get_avatar", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT avatar FROM users WHERE id = $1`, userID).Scan(&avatar)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}

	if len(avatar) == 0 {
		return nil, user.ErrNotFound
	}

	return avatar, nil
}

func (r *UsersRepo) ClearAvatar(ctx context.Context, userID string) error {
	return r.observe("users.clear_avatar", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET avatar = NULL, updated_at = NOW() WHERE id = $1`, userID)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}
