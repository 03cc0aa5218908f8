package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"okrplanner/internal/okr"
	"okrplanner/internal/okrstore"
	"okrplanner/internal/period"
	"okrplanner/internal/planner"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondErr maps domain errors onto HTTP statuses.
func respondErr(c *gin.Context, err error) {
	respondError(c, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, okrstore.ErrGoalNotFound),
		errors.Is(err, okrstore.ErrPlanNotFound),
		errors.Is(err, okrstore.ErrKeyResultNotFound),
		errors.Is(err, okrstore.ErrObjectiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, okrstore.ErrPlanAlreadyExists),
		errors.Is(err, okrstore.ErrPlanLocked):
		return http.StatusConflict
	case errors.Is(err, okrstore.ErrInvalidGoal),
		errors.Is(err, okrstore.ErrDueDateTooSoon),
		errors.Is(err, period.ErrInvalidRange),
		errors.Is(err, okr.ErrInvalidTarget),
		errors.Is(err, planner.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, key string) (int64, bool) {
	raw := c.Param(key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", key, raw))
		return 0, false
	}
	return id, true
}
