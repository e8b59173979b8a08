package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Age          int       `json:"age"`
	Avatar       []byte    `json:"-"` // served as raw bytes by its own endpoint
	Tokens       []string  `json:"-"` // live sessions, ordered by issue time
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=7"`
	Age      int    `json:"age" binding:"omitempty,gte=0"`
}

// UpdateUserRequest is the only shape a PATCH body can take; anything outside
// {name, email, age, password} fails to bind and never reaches the store.
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=120"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=7"`
	Age      *int    `json:"age" binding:"omitempty,gte=0"`
}

func (r UpdateUserRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Password == nil && r.Age == nil
}
