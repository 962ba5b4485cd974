package handlers

import (
	"context"
	"errors"
	"net/http"

	"franchise-billing/internal/middleware"
	"franchise-billing/internal/models"
	"franchise-billing/internal/services"
	"franchise-billing/pkg/utils"
)

// AdminHandler serves franchisee review for admins
type AdminHandler struct {
	Service *services.FranchiseeService
}

func NewAdminHandler(s *services.FranchiseeService) *AdminHandler {
	return &AdminHandler{Service: s}
}

func (h *AdminHandler) ListFranchisees(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Franchisee{}
	}
	utils.JSON(w, http.StatusOK, list)
}

func (h *AdminHandler) GetFranchisee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid franchisee id")
		return
	}
	f, err := h.Service.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, f)
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Service.Approve)
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Service.Reject)
}

type reviewFunc func(ctx context.Context, id int64, req *models.ReviewRequest, reviewerID int64) (*models.Franchisee, error)

func (h *AdminHandler) review(w http.ResponseWriter, r *http.Request, fn reviewFunc) {
	id, ok := pathID(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid franchisee id")
		return
	}
	admin, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// The body is optional
	var req models.ReviewRequest
	if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := fn(r.Context(), id, &req, admin.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, f)
}
