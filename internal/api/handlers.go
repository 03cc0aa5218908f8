package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"okrplanner/internal/audit"
	"okrplanner/internal/insights"
	"okrplanner/internal/metrics"
	"okrplanner/internal/notify"
	"okrplanner/internal/okrstore"
	"okrplanner/internal/planner"
)

const dateLayout = "2006-01-02"

type createGoalRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" binding:"required"`
	OwnerID     string `json:"owner_id"`
}

type generatePlanRequest struct {
	StartDate   string             `json:"start_date"`
	ChatHistory []insights.Message `json:"chat_history"`
}

type updateKeyResultRequest struct {
	CurrentValue *float64 `json:"current_value" binding:"required"`
	TargetValue  *float64 `json:"target_value"`
}

// ListGoals returns every goal.
func (s *Server) ListGoals(c *gin.Context) {
	goals, err := s.Store.ListGoals(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// CreateGoal stores a new goal.
func (s *Server) CreateGoal(c *gin.Context) {
	var req createGoalRequest
	if !bindJSON(c, &req) {
		return
	}
	due, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}
	goal, err := s.Store.CreateGoal(c.Request.Context(), okrstore.NewGoal{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// GetGoal returns one goal.
func (s *Server) GetGoal(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	goal, err := s.Store.GetGoal(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// GeneratePlan runs the planning pipeline for a goal.
func (s *Server) GeneratePlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req generatePlanRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	goal, err := s.Store.GetGoal(ctx, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	runReq := planner.NewRunRequest(goal, req.ChatHistory)
	if req.StartDate != "" {
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		runReq.StartDate = start
	}

	res, err := s.Pipeline.Run(ctx, runReq)
	if err != nil {
		s.logger().Warn("api: plan generation failed", "goal_id", id, "error", err)
		respondErr(c, err)
		return
	}

	title, msg := notify.FormatPlanGenerated(goal.Title, res.Source, len(res.Plan.Yearly), res.Plan.KeyResultCount())
	if err := s.Notifier.Send(title, msg); err != nil {
		s.logger().Warn("api: notification failed", "error", err)
	}
	c.JSON(http.StatusCreated, res)
}

// GetPlan returns the goal, its plan and current progress.
func (s *Server) GetPlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	goal, err := s.Store.GetGoal(ctx, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	plan, err := s.Store.LoadPlan(ctx, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if len(plan.Yearly) == 0 {
		respondError(c, http.StatusNotFound, okrstore.ErrPlanNotFound.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"goal":     goal,
		"plan":     plan,
		"progress": metrics.Recompute(plan),
	})
}

// DeletePlan removes every objective and key result of a goal.
func (s *Server) DeletePlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	deleted, err := s.Store.DeletePlan(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal_id": id, "deleted_yearly_objectives": deleted})
}

// GetProgress returns the goal's recomputed progress.
func (s *Server) GetProgress(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	report, err := s.Progress.Recompute(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListEvents returns the goal's audit trail.
func (s *Server) ListEvents(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if s.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"events": []audit.Record{}})
		return
	}
	events, err := s.Audit.List(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// UpdateKeyResult sets a key result's current value and optionally its target.
func (s *Server) UpdateKeyResult(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateKeyResultRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.Progress.ApplyUpdate(c.Request.Context(), metrics.KeyResultUpdate{
		ID:      id,
		Current: *req.CurrentValue,
		Target:  req.TargetValue,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
