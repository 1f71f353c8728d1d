package sessions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grouppulse/backend/internal/middleware"
	"github.com/grouppulse/backend/internal/models"
	"github.com/grouppulse/backend/internal/realtime"
	"github.com/grouppulse/backend/internal/sessioncode"
	"github.com/grouppulse/backend/pkg/queue"
	"github.com/grouppulse/backend/pkg/response"
)

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// UpdateRequest is the body for PATCH /sessions/:id.
type UpdateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// StatusRequest is the body for PATCH /sessions/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft active ended"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo   *Repository
	hub    *realtime.Hub
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates a sessions handler. queue may be nil when no worker is
// deployed; snapshot jobs are skipped in that case.
func NewHandler(repo *Repository, hub *realtime.Hub, q *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, hub: hub, queue: q, logger: logger}
}

// Create handles POST /sessions (presenter). The join code is minted once
// here and is immutable for the session's lifetime. A write-time collision
// (another presenter racing on the same candidate) re-resolves once before
// surfacing a conflict.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	s := &models.Session{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.SessionDraft,
		CreatedBy:   userID,
	}

	for attempt := 0; attempt < 2; attempt++ {
		code, err := sessioncode.ResolveUnique(c.Request.Context(), h.repo.CodeExists)
		if err != nil && !errors.Is(err, sessioncode.ErrGenerationExhausted) {
			h.logger.Error("resolve session code", zap.Error(err))
			response.ServiceUnavailable(c, "could not allocate a session code")
			return
		}
		if errors.Is(err, sessioncode.ErrGenerationExhausted) {
			h.logger.Warn("session code attempts exhausted, relying on unique constraint", zap.String("code", code))
		}

		s.Code = code
		err = h.repo.Create(c.Request.Context(), s)
		if err == nil {
			response.Created(c, s)
			return
		}
		if !errors.Is(err, ErrCodeConflict) {
			h.logger.Error("create session", zap.Error(err))
			response.Internal(c, "failed to create session")
			return
		}
	}
	response.Conflict(c, "could not allocate a unique session code, try again")
}

// List handles GET /sessions (presenter's own sessions).
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, gin.H{"sessions": list})
}

// GetByID handles GET /sessions/:id (owner only).
func (h *Handler) GetByID(c *gin.Context) {
	s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	response.OK(c, s)
}

// Update handles PATCH /sessions/:id (owner only).
func (h *Handler) Update(c *gin.Context) {
	s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), s.ID, req.Title, req.Description); err != nil {
		response.Internal(c, "failed to update session")
		return
	}
	s.Title, s.Description = req.Title, req.Description
	response.OK(c, s)
}

// UpdateStatus handles PATCH /sessions/:id/status (owner only). Legal
// transitions are draft -> active -> ended. Ending a session enqueues a
// result snapshot job and notifies connected participants.
func (h *Handler) UpdateStatus(c *gin.Context) {
	s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: status must be draft, active or ended")
		return
	}

	next := models.SessionStatus(req.Status)
	if !s.Status.CanTransitionTo(next) {
		response.BadRequest(c, (&models.ErrInvalidTransition{From: s.Status, To: next}).Error())
		return
	}
	if err := h.repo.UpdateStatus(c.Request.Context(), s.ID, next); err != nil {
		response.Internal(c, "failed to update session status")
		return
	}

	h.hub.BroadcastToSessionAndPublish(s.ID, "session_status", gin.H{"id": s.ID, "status": next})
	if next == models.SessionEnded && h.queue != nil {
		if err := h.queue.EnqueueSnapshot(c.Request.Context(), queue.SnapshotPayload{SessionID: s.ID}); err != nil {
			h.logger.Error("enqueue snapshot", zap.Error(err), zap.String("session_id", s.ID.String()))
		}
	}
	response.OK(c, gin.H{"id": s.ID, "status": next})
}

// Delete handles DELETE /sessions/:id (owner only). Frees the join code for
// reuse by future sessions.
func (h *Handler) Delete(c *gin.Context) {
	s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), s.ID); err != nil {
		response.Internal(c, "failed to delete session")
		return
	}
	response.NoContent(c)
}

// Join handles GET /join/:code (public). Resolves a join code to its session
// when one exists and is participant-visible (draft or active); ended
// sessions look the same as absent ones.
func (h *Handler) Join(c *gin.Context) {
	code := c.Param("code")
	if !sessioncode.IsValid(code) {
		response.BadRequest(c, "invalid session code")
		return
	}
	s, err := h.repo.GetByCode(c.Request.Context(), code)
	if err != nil {
		response.Internal(c, "failed to resolve session code")
		return
	}
	if s == nil || !s.JoinableByParticipants() {
		response.NotFound(c, "no session with this code")
		return
	}
	response.OK(c, gin.H{
		"id":          s.ID,
		"code":        s.Code,
		"title":       s.Title,
		"description": s.Description,
		"status":      s.Status,
	})
}

// ParticipantCount handles GET /sessions/:id/participant_count (owner only).
func (h *Handler) ParticipantCount(c *gin.Context) {
	s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"id": s.ID, "count": h.hub.ParticipantCount(s.ID), "peak": s.PeakParticipants})
}

// ownedSession parses :id, loads the session and enforces ownership. It
// writes the error response itself and returns ok=false on failure.
func (h *Handler) ownedSession(c *gin.Context) (*models.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil, false
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "session not found")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := c.Get(middleware.ContextUserRole)
	if s.CreatedBy != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "not the session owner")
		return nil, false
	}
	return s, true
}
