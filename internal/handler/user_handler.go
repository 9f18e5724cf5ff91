package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-contact-api/internal/model"
)

type userService interface {
	List(ctx context.Context, q model.UserQuery) (model.UserList, error)
	Create(ctx context.Context, req model.CreateUserRequest) (model.User, error)
	Get(ctx context.Context, id string) (model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
	Delete(ctx context.Context, id string) error
}

type UserHandler struct {
	service userService
}

func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))

	list, err := h.service.List(r.Context(), model.UserQuery{
		Search:  query.Get("search"),
		Role:    query.Get("role"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "users retrieved", list)
}

func (h *UserHandler) Store(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateUserRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "user created", user)
}

func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "user retrieved", user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Update(r.Context(), chi.URLParam(r, "uuid"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "user updated", user)
}

func (h *UserHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "uuid")); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "user deleted", nil)
}
