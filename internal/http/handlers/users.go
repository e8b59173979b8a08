package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, age int) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type SessionManager interface {
	Issue(ctx context.Context, userID string) (string, error)
	RevokeOne(ctx context.Context, userID, raw string) error
	RevokeAll(ctx context.Context, userID string) error
}

// TaskCascader is the slice of the task store needed for account deletion.
type TaskCascader interface {
	DeleteForOwner(ctx context.Context, owner string) error
}

type UsersHandler struct {
	store    UserStore
	sessions SessionManager
	tasks    TaskCascader
}

func NewUsersHandler(store UserStore, sessions SessionManager, tasks TaskCascader) *UsersHandler {
	return &UsersHandler{
		store:    store,
		sessions: sessions,
		tasks:    tasks,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// length is covered by the binding tag; the substring ban is not
	if err := security.ValidatePassword(req.Password); err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.store.Create(cctx, req.Name, req.Email, hash, req.Age)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.sessions.Issue(cctx, u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":  u,
		"token": token,
	})
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// the same response for a missing user and a wrong password, so the
	// error never says which one it was
	foundUser, err := h.store.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondUnauthorized(ctx, "unable_to_login", "Unable to login")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnauthorized(ctx, "unable_to_login", "Unable to login")
		return
	}

	token, err := h.sessions.Issue(cctx, foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":  foundUser,
		"token": token,
	})
}

// Logout revokes the one token that authenticated this request; other
// sessions on other devices stay live.
func (h *UsersHandler) Logout(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)
	raw, okToken := middlewares.TokenFromContext(ctx)

	if !ok || !okToken {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.sessions.RevokeOne(cctx, me.ID, raw); err != nil {
		RespondInternal(ctx, "Could not log out")
		return
	}

	ctx.Status(http.StatusOK)
}

func (h *UsersHandler) LogoutAll(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.sessions.RevokeAll(cctx, me.ID); err != nil {
		RespondInternal(ctx, "Could not log out")
		return
	}

	ctx.Status(http.StatusOK)
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	ctx.JSON(http.StatusOK, me)
}

// ListUsers is open to any authenticated user, matching the permissive
// original surface. The serializer keeps hashes, tokens and avatars out.
func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, users)
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	h.applyUpdate(ctx, me.ID)
}

// UpdateUser serves the PATCH /users/:id alias; it only ever updates the
// caller. Any other id looks like a missing resource.
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	id := ctx.Param("id")

	if id != me.ID {
		RespondNotFound(ctx, "User not found")
		return
	}

	h.applyUpdate(ctx, me.ID)
}

func (h *UsersHandler) applyUpdate(ctx *gin.Context, id string) {
	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Empty() {
		RespondBadRequest(ctx, "Invalid updates", nil)
		return
	}

	var hash *string

	if req.Password != nil {
		if err := security.ValidatePassword(*req.Password); err != nil {
			RespondBadRequest(ctx, err.Error(), nil)
			return
		}

		hashed, err := security.HashPassword(*req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		hash = &hashed
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.Update(cctx, id, req, hash)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// DeleteMe removes the account and cascades the user's tasks; leaving them
// orphaned would make them unreachable forever.
func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.tasks.DeleteForOwner(cctx, me.ID); err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	if err := h.store.Delete(cctx, me.ID); err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, me)
}
