package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/logger"
	"franchise-billing/internal/middleware"
	"franchise-billing/internal/repositories"
	"franchise-billing/internal/services"
	"franchise-billing/internal/whatsapp"
	"franchise-billing/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// respondError maps service and engine errors onto HTTP statuses and
// writes {"error": ...}
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *billing.ValidationError
		se *billing.StockError
		ne *billing.NumberingConflictError
	)
	switch {
	case errors.As(err, &ve):
		utils.RespondErrorFields(w, http.StatusBadRequest, ve.Error(), ve.Fields)
	case errors.As(err, &se):
		utils.RespondError(w, http.StatusConflict, se.Error())
	case errors.As(err, &ne):
		logRequestError(r, err, "bill numbering retries exhausted")
		utils.RespondError(w, http.StatusServiceUnavailable, "Could not allocate a bill number, please retry")
	case errors.Is(err, repositories.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, repositories.ErrDuplicateFranchise),
		errors.Is(err, repositories.ErrAlreadyReviewed),
		errors.Is(err, repositories.ErrNegativeStock),
		errors.Is(err, services.ErrCodeUnavailable):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrAccountSuspended),
		errors.Is(err, services.ErrNotApproved),
		errors.Is(err, services.ErrRejected):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, whatsapp.ErrNotConfigured):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logRequestError(r, err, "request timed out")
		utils.RespondError(w, http.StatusServiceUnavailable, "Request timed out, please retry")
	default:
		logRequestError(r, err, "request failed")
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func logRequestError(r *http.Request, err error, msg string) {
	logger.For("http").WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": middleware.RequestIDFromContext(r.Context()),
	}).WithError(err).Error(msg)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

// tenant returns the franchise resolved by middleware.RequireTenant
func tenant(w http.ResponseWriter, r *http.Request) (int64, bool) {
	fid, ok := middleware.FranchiseIDFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "franchise_id is required")
	}
	return fid, ok
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
