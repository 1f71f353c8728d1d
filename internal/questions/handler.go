package questions

import (
	"errors"
	"strings"

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

const maxQuestionLength = 500

// SubmitRequest is the body for POST /join/:code/polls/:poll_id/questions.
type SubmitRequest struct {
	ParticipantID *uuid.UUID `json:"participant_id"`
	DisplayName   string     `json:"display_name"`
	Content       string     `json:"content" binding:"required"`
}

// UpvoteRequest is the body for POST /join/:code/questions/:question_id/upvote.
type UpvoteRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
}

// Handler handles qa question endpoints.
type Handler struct {
	repo        *Repository
	pollRepo    *polls.Repository
	sessionRepo *sessions.Repository
	hub         *realtime.Hub
	logger      *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(repo *Repository, pollRepo *polls.Repository, sessionRepo *sessions.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, pollRepo: pollRepo, sessionRepo: sessionRepo, hub: hub, logger: logger}
}

// Submit handles POST /join/:code/polls/:poll_id/questions (public). Only qa
// polls accept questions; every other variant takes poll responses instead.
func (h *Handler) Submit(c *gin.Context) {
	s, p, ok := h.joinablePoll(c)
	if !ok {
		return
	}
	data, err := p.DecodeData()
	if err != nil {
		response.Internal(c, "failed to read poll")
		return
	}
	qa, isQA := data.(*models.QAData)
	if !isQA {
		response.BadRequest(c, "questions can only be submitted to qa polls")
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		response.BadRequest(c, "question content must not be empty")
		return
	}
	if len([]rune(content)) > maxQuestionLength {
		response.BadRequest(c, "question content is too long")
		return
	}
	if req.DisplayName == "" && !qa.AllowAnonymous {
		response.BadRequest(c, "this qa poll requires a display name")
		return
	}

	q := &models.Question{
		PollID:        p.ID,
		SessionID:     s.ID,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		Content:       content,
		Approved:      true,
	}
	if err := h.repo.Create(c.Request.Context(), q); err != nil {
		h.logger.Error("failed to store question", zap.String("poll_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to store question")
		return
	}

	h.hub.BroadcastToSessionAndPublish(s.ID, "question_received", q)
	response.Created(c, q)
}

// ListForParticipants handles GET /join/:code/polls/:poll_id/questions
// (public). Only approved questions are visible to the audience.
func (h *Handler) ListForParticipants(c *gin.Context) {
	_, p, ok := h.joinablePoll(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByPoll(c.Request.Context(), p.ID, true)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"questions": list})
}

// Upvote handles POST /join/:code/questions/:question_id/upvote (public).
// One vote per participant per question.
func (h *Handler) Upvote(c *gin.Context) {
	s, ok := h.joinableSession(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	q, err := h.repo.GetByID(c.Request.Context(), questionID)
	if err != nil {
		response.Internal(c, "failed to load question")
		return
	}
	if q == nil {
		response.NotFound(c, "question not found")
		return
	}
	if q.SessionID != s.ID {
		response.Conflict(c, models.ErrCrossSessionReference.Error())
		return
	}

	p, err := h.pollRepo.GetByID(c.Request.Context(), q.PollID)
	if err != nil || p == nil {
		response.Internal(c, "failed to load poll")
		return
	}
	if data, err := p.DecodeData(); err == nil {
		if qa, isQA := data.(*models.QAData); isQA && !qa.AllowUpvoting {
			response.BadRequest(c, "upvoting is disabled for this qa poll")
			return
		}
	}

	var req UpvoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	votes, err := h.repo.Upvote(c.Request.Context(), questionID, req.ParticipantID)
	if err != nil {
		if errors.Is(err, ErrAlreadyVoted) {
			response.Conflict(c, "already voted on this question")
			return
		}
		response.Internal(c, "failed to record vote")
		return
	}

	h.hub.BroadcastToSessionAndPublish(s.ID, "question_voted", gin.H{"question_id": questionID, "votes": votes})
	response.OK(c, gin.H{"question_id": questionID, "votes": votes})
}

// ListForModeration handles GET /polls/:id/questions (owner). Includes
// unapproved questions.
func (h *Handler) ListForModeration(c *gin.Context) {
	p, ok := h.ownedPoll(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByPoll(c.Request.Context(), p.ID, false)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"questions": list})
}

// SetApproved handles PATCH /questions/:id/approved (owner).
func (h *Handler) SetApproved(c *gin.Context) {
	var req struct {
		Approved *bool `json:"approved" binding:"required"`
	}
	q, ok := h.ownedQuestion(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.SetApproved(c.Request.Context(), q.ID, *req.Approved); err != nil {
		response.Internal(c, "failed to update question")
		return
	}
	h.hub.BroadcastToSessionAndPublish(q.SessionID, "question_moderated", gin.H{"question_id": q.ID, "approved": *req.Approved})
	response.OK(c, gin.H{"question_id": q.ID, "approved": *req.Approved})
}

// MarkAnswered handles POST /questions/:id/answered (owner).
func (h *Handler) MarkAnswered(c *gin.Context) {
	q, ok := h.ownedQuestion(c)
	if !ok {
		return
	}
	if err := h.repo.MarkAnswered(c.Request.Context(), q.ID); err != nil {
		response.Internal(c, "failed to update question")
		return
	}
	h.hub.BroadcastToSessionAndPublish(q.SessionID, "question_answered", gin.H{"question_id": q.ID})
	response.OK(c, gin.H{"question_id": q.ID, "answered": true})
}

// Delete handles DELETE /questions/:id (owner).
func (h *Handler) Delete(c *gin.Context) {
	q, ok := h.ownedQuestion(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), q.ID); err != nil {
		response.Internal(c, "failed to delete question")
		return
	}
	h.hub.BroadcastToSessionAndPublish(q.SessionID, "question_deleted", gin.H{"question_id": q.ID})
	response.NoContent(c)
}

// joinableSession resolves the :code param to a joinable session.
func (h *Handler) joinableSession(c *gin.Context) (*models.Session, bool) {
	code := c.Param("code")
	if !sessioncode.IsValid(code) {
		response.BadRequest(c, "invalid session code")
		return nil, false
	}
	s, err := h.sessionRepo.GetByCode(c.Request.Context(), code)
	if err != nil {
		response.Internal(c, "failed to resolve session code")
		return nil, false
	}
	if s == nil || !s.JoinableByParticipants() {
		response.NotFound(c, "no session with this code")
		return nil, false
	}
	return s, true
}

// joinablePoll resolves :code plus :poll_id and rejects mismatched pairs.
func (h *Handler) joinablePoll(c *gin.Context) (*models.Session, *models.Poll, bool) {
	s, ok := h.joinableSession(c)
	if !ok {
		return nil, nil, false
	}
	pollID, err := uuid.Parse(c.Param("poll_id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return nil, nil, false
	}
	p, err := h.pollRepo.GetByID(c.Request.Context(), pollID)
	if err != nil {
		response.Internal(c, "failed to load poll")
		return nil, nil, false
	}
	if p == nil {
		response.NotFound(c, "poll not found")
		return nil, nil, false
	}
	if p.SessionID != s.ID {
		response.Conflict(c, models.ErrCrossSessionReference.Error())
		return nil, nil, false
	}
	if !p.Launched || p.Closed {
		response.Conflict(c, "poll is not open")
		return nil, nil, false
	}
	return s, p, true
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

func (h *Handler) ownedQuestion(c *gin.Context) (*models.Question, bool) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return nil, false
	}
	q, err := h.repo.GetByID(c.Request.Context(), questionID)
	if err != nil || q == nil {
		response.NotFound(c, "question not found")
		return nil, false
	}
	if !h.requireOwner(c, q.SessionID) {
		return nil, false
	}
	return q, true
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
