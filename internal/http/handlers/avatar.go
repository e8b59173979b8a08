package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/imaging"
	"github.com/gin-gonic/gin"
)

type AvatarStore interface {
	SetAvatar(ctx context.Context, userID string, avatar []byte) error
	GetAvatar(ctx context.Context, userID string) ([]byte, error)
	ClearAvatar(ctx context.Context, userID string) error
}

type AvatarHandler struct {
	store    AvatarStore
	maxBytes int64
	size     int
}

func NewAvatarHandler(store AvatarStore, maxBytes int64, size int) *AvatarHandler {
	return &AvatarHandler{
		store:    store,
		maxBytes: maxBytes,
		size:     size,
	}
}

// Upload accepts a multipart form with an "avatar" file field, normalizes the
// image to a fixed square PNG and stores the bytes on the caller's record.
func (h *AvatarHandler) Upload(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	file, err := ctx.FormFile("avatar")

	if err != nil {
		RespondBadRequest(ctx, "Please provide an avatar file", nil)
		return
	}

	if file.Size > h.maxBytes {
		RespondBadRequest(ctx, "Avatar must be smaller than 100KB", nil)
		return
	}

	if !imaging.AllowedFilename(file.Filename) {
		RespondBadRequest(ctx, imaging.ErrUnsupportedFormat.Error(), nil)
		return
	}

	src, err := file.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}

	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxBytes+1))

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}

	if int64(len(data)) > h.maxBytes {
		RespondBadRequest(ctx, "Avatar must be smaller than 100KB", nil)
		return
	}

	normalized, err := imaging.NormalizeAvatar(data, h.size)

	if err != nil {
		RespondBadRequest(ctx, imaging.ErrUnsupportedFormat.Error(), nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.SetAvatar(cctx, me.ID, normalized); err != nil {
		RespondInternal(ctx, "Could not store avatar")
		return
	}

	ctx.Status(http.StatusOK)
}

// Fetch is public: it serves the stored PNG for any user id.
func (h *AvatarHandler) Fetch(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	avatar, err := h.store.GetAvatar(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Avatar not found")
			return
		}
		RespondInternal(ctx, "Could not fetch avatar")
		return
	}

	ctx.Data(http.StatusOK, "image/png", avatar)
}

func (h *AvatarHandler) Delete(ctx *gin.Context) {
	me, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.store.ClearAvatar(cctx, me.ID); err != nil {
		RespondInternal(ctx, "Could not delete avatar")
		return
	}

	ctx.Status(http.StatusOK)
}
