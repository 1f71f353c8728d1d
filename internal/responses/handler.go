package responses

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grouppulse/backend/internal/middleware"
	"github.com/grouppulse/backend/internal/models"
	"github.com/grouppulse/backend/internal/polls"
	"github.com/grouppulse/backend/internal/realtime"
	"github.com/grouppulse/backend/internal/sessioncode"
	"github.com/grouppulse/backend/internal/sessions"
	"github.com/grouppulse/backend/pkg/response"
)

// SubmitRequest is the body for POST /join/:code/polls/:poll_id/responses.
// Participants are anonymous; participant_id is a client-generated UUID that
// keys per-participant limits when present.
type SubmitRequest struct {
	ParticipantID *uuid.UUID      `json:"participant_id"`
	DisplayName   string          `json:"display_name"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
}

// Handler handles response submission, results and resets.
type Handler struct {
	repo        *Repository
	snapshots   *SnapshotRepository
	pollRepo    *polls.Repository
	sessionRepo *sessions.Repository
	hub         *realtime.Hub
	logger      *zap.Logger
}

// NewHandler creates a responses handler.
func NewHandler(repo *Repository, snapshots *SnapshotRepository, pollRepo *polls.Repository, sessionRepo *sessions.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, snapshots: snapshots, pollRepo: pollRepo, sessionRepo: sessionRepo, hub: hub, logger: logger}
}

// Submit handles POST /join/:code/polls/:poll_id/responses (public). The
// payload is validated against the poll's variant before anything is stored;
// quizzes are graded server-side on the way in.
func (h *Handler) Submit(c *gin.Context) {
	code := c.Param("code")
	if !sessioncode.IsValid(code) {
		response.BadRequest(c, "invalid session code")
		return
	}
	s, err := h.sessionRepo.GetByCode(c.Request.Context(), code)
	if err != nil {
		response.Internal(c, "failed to resolve session code")
		return
	}
	if s == nil || !s.JoinableByParticipants() {
		response.NotFound(c, "no session with this code")
		return
	}

	pollID, err := uuid.Parse(c.Param("poll_id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	p, err := h.pollRepo.GetByID(c.Request.Context(), pollID)
	if err != nil {
		response.Internal(c, "failed to load poll")
		return
	}
	if p == nil {
		response.NotFound(c, "poll not found")
		return
	}
	if p.SessionID != s.ID {
		response.Conflict(c, models.ErrCrossSessionReference.Error())
		return
	}
	if !p.Launched || p.Closed {
		response.Conflict(c, "poll is not open for responses")
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	// Entry budgets only apply to participants that identify themselves;
	// without a participant_id there is nothing to count against.
	priorEntries := 0
	if p.Type == models.PollWordCloud && req.ParticipantID != nil {
		priorEntries, err = h.repo.CountByPollAndParticipant(c.Request.Context(), p.ID, *req.ParticipantID)
		if err != nil {
			response.Internal(c, "failed to check entry limit")
			return
		}
	}

	grade, err := polls.Validate(p, req.Payload, priorEntries)
	if err != nil {
		if models.IsShapeError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("response validation failed", zap.String("poll_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to validate response")
		return
	}

	resp := &models.PollResponse{
		PollID:        p.ID,
		SessionID:     s.ID,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		Payload:       req.Payload,
	}
	if grade != nil {
		resp.IsCorrect = &grade.Correct
		resp.Points = &grade.Points
	}
	if err := h.repo.Create(c.Request.Context(), resp); err != nil {
		h.logger.Error("failed to store response", zap.String("poll_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to store response")
		return
	}

	total, err := h.repo.CountByPoll(c.Request.Context(), p.ID)
	if err == nil {
		h.hub.BroadcastToSessionAndPublish(s.ID, "response_received", gin.H{
			"poll_id": p.ID,
			"total":   total,
		})
	}

	body := gin.H{"id": resp.ID, "created_at": resp.CreatedAt}
	if grade != nil {
		body["correct"] = grade.Correct
		body["points"] = grade.Points
	}
	response.Created(c, body)
}

// Results handles GET /polls/:id/results (owner). Returns the per-variant
// aggregate over all stored responses.
func (h *Handler) Results(c *gin.Context) {
	p, ok := h.ownedPoll(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByPoll(c.Request.Context(), p.ID)
	if err != nil {
		response.Internal(c, "failed to load responses")
		return
	}
	agg, err := BuildAggregate(p, list)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, gin.H{
		"poll_id": p.ID,
		"type":    p.Type,
		"results": agg,
	})
}

// Snapshots handles GET /sessions/:id/snapshots (owner). Returns the frozen
// aggregates the worker computed when the session ended.
func (h *Handler) Snapshots(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireOwner(c, sessionID) {
		return
	}
	list, err := h.snapshots.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to load snapshots")
		return
	}
	response.OK(c, gin.H{"snapshots": list})
}

// ResetPoll handles DELETE /polls/:id/responses (owner).
func (h *Handler) ResetPoll(c *gin.Context) {
	p, ok := h.ownedPoll(c)
	if !ok {
		return
	}
	deleted, err := h.repo.DeleteByPoll(c.Request.Context(), p.ID)
	if err != nil {
		response.Internal(c, "failed to reset poll responses")
		return
	}
	h.hub.BroadcastToSessionAndPublish(p.SessionID, "poll_reset", gin.H{"poll_id": p.ID})
	response.OK(c, gin.H{"poll_id": p.ID, "deleted": deleted})
}

// ResetSession handles DELETE /sessions/:id/responses (owner).
func (h *Handler) ResetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireOwner(c, sessionID) {
		return
	}
	deleted, err := h.repo.DeleteBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to reset session responses")
		return
	}
	h.hub.BroadcastToSessionAndPublish(sessionID, "session_reset", gin.H{"session_id": sessionID})
	response.OK(c, gin.H{"session_id": sessionID, "deleted": deleted})
}

func (h *Handler) ownedPoll(c *gin.Context) (*models.Poll, bool) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return nil, false
	}
	p, err := h.pollRepo.GetByID(c.Request.Context(), pollID)
	if err != nil || p == nil {
		response.NotFound(c, "poll not found")
		return nil, false
	}
	if !h.requireOwner(c, p.SessionID) {
		return nil, false
	}
	return p, true
}

func (h *Handler) requireOwner(c *gin.Context, sessionID uuid.UUID) bool {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.sessionRepo.IsOwner(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.NotFound(c, "session not found")
		return false
	}
	if !ok {
		response.Forbidden(c, "not the session owner")
		return false
	}
	return true
}
