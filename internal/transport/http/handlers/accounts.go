package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/service"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/apierrors"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/middleware"
)

// Register - POST /register (multipart: username, email, fullName, password, avatar, coverImage).
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	up, err := h.readMultipart(w, r, models.RoleAvatar, models.RoleCoverImage)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	// Неопубликованные вложения удаляются на любом исходе.
	defer h.stager.Discard(context.WithoutCancel(r.Context()), up.files.Files()...)

	acc, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username:    up.field("username"),
		Email:       up.field("email"),
		FullName:    up.field("fullName", "full_name"),
		Password:    up.field("password"),
		Attachments: up.files,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, acc, "User registered successfully")
}

// CurrentUser - GET /current-user.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.CurrentAccount(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, acc, "Current user fetched successfully")
}

// UserByID - GET /{userId}.
func (h *Handlers) UserByID(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.AccountByID(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, acc, "User fetched successfully")
}

// UpdateAccount - PATCH /update-account.
func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var in updateAccountRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	acc, err := h.svc.UpdateAccountDetails(r.Context(), middleware.AccountID(r.Context()), in.FullName, in.Email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, acc, "Account details updated successfully")
}

// UpdateAvatar - PATCH /avatar (multipart: avatar).
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, models.RoleAvatar, h.svc.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage - PATCH /cover-image (multipart: coverImage).
func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, models.RoleCoverImage, h.svc.UpdateCoverImage, "Cover image updated successfully")
}

type mediaUpdater func(ctx context.Context, accountID string, f *models.StagedFile) (*models.Account, error)

func (h *Handlers) updateMedia(w http.ResponseWriter, r *http.Request, role models.MediaRole, update mediaUpdater, msg string) {
	up, err := h.readMultipart(w, r, role)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	defer h.stager.Discard(context.WithoutCancel(r.Context()), up.files.Files()...)

	acc, err := update(r.Context(), middleware.AccountID(r.Context()), up.files.Get(role))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, acc, msg)
}
