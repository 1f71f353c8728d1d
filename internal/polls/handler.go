package polls

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grouppulse/backend/internal/middleware"
	"github.com/grouppulse/backend/internal/models"
	"github.com/grouppulse/backend/internal/realtime"
	"github.com/grouppulse/backend/internal/sessioncode"
	"github.com/grouppulse/backend/internal/sessions"
	"github.com/grouppulse/backend/pkg/response"
	"github.com/grouppulse/backend/pkg/storage"
)

// CreateRequest is the body for POST /sessions/:id/polls.
type CreateRequest struct {
	Type string          `json:"type" binding:"required"`
	Data json.RawMessage `json:"data" binding:"required"`
}

// ReorderRequest is the body for PATCH /polls/:id/position.
type ReorderRequest struct {
	Position int `json:"position" binding:"required,min=1"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	repo        *Repository
	sessionRepo *sessions.Repository
	hub         *realtime.Hub
	s3          *storage.S3
}

// NewHandler creates a polls handler. s3 may be nil; image cleanup on poll
// delete is skipped in that case.
func NewHandler(repo *Repository, sessionRepo *sessions.Repository, hub *realtime.Hub, s3 *storage.S3) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, hub: hub, s3: s3}
}

// Create handles POST /sessions/:id/polls (owner). The poll's type is fixed
// here; changing it later means delete + recreate.
func (h *Handler) Create(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireOwner(c, sessionID) {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	typ := models.PollType(req.Type)
	if !typ.Valid() {
		response.BadRequest(c, "unknown poll type: "+req.Type)
		return
	}

	p := &models.Poll{SessionID: sessionID, Type: typ, Data: req.Data}
	if err := ValidateConfig(p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		response.Internal(c, "failed to create poll")
		return
	}
	response.Created(c, p)
}

// ListBySession handles GET /sessions/:id/polls (owner; full configs
// including quiz answer keys).
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireOwner(c, sessionID) {
		return
	}
	list, err := h.repo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list polls")
		return
	}
	response.OK(c, gin.H{"polls": list})
}

// ListForParticipants handles GET /join/:code/polls (public). Returns the
// launched polls of a joinable session with quiz answer keys stripped.
func (h *Handler) ListForParticipants(c *gin.Context) {
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
	list, err := h.repo.ListLaunchedBySession(c.Request.Context(), s.ID)
	if err != nil {
		response.Internal(c, "failed to list polls")
		return
	}

	views := make([]gin.H, 0, len(list))
	for i := range list {
		view, err := participantView(&list[i])
		if err != nil {
			response.Internal(c, "failed to render poll")
			return
		}
		views = append(views, view)
	}
	response.OK(c, gin.H{"session_id": s.ID, "polls": views})
}

// Launch handles POST /polls/:id/launch (owner).
func (h *Handler) Launch(c *gin.Context) {
	p, ok := h.ownedPoll(c)
	if !ok {
		return
	}
	if err := h.repo.Launch(c.Request.Context(), p.ID); err != nil {
		response.Internal(c, "failed to launch poll")
		return
	}
	p.Launched = true

	view, err := participantView(p)
	if err != nil {
		response.Internal(c, "failed to render poll")
		return
	}
	h.hub.BroadcastToSessionAndPublish(p.SessionID, "poll_launched", view)
	response.OK(c, gin.H{"id": p.ID, "launched": true})
}

// Close handles POST /polls/:id/close (owner).
func (h *Handler) Close(c *gin.Context) {
	p, ok := h.ownedPoll(c)
	if !ok {
		return
	}
	if err := h.repo.Close(c.Request.Context(), p.ID); err != nil {
		response.Internal(c, "failed to close poll")
		return
	}
	p.Closed = true

	payload := gin.H{"id": p.ID}
	// A closed quiz may reveal its answer key when configured to.
	if p.Type == models.PollQuiz {
		if data, err := p.DecodeData(); err == nil {
			if quiz, ok := data.(*models.QuizData); ok && quiz.ShowCorrectAnswer {
				payload["data"] = quiz
			}
		}
	}
	h.hub.BroadcastToSessionAndPublish(p.SessionID, "poll_closed", payload)
	response.OK(c, gin.H{"id": p.ID, "closed": true})
}

// Reorder handles PATCH /polls/:id/position (owner).
func (h *Handler) Reorder(c *gin.Context) {
	p, ok := h.ownedPoll(c)
	if !ok {
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Reorder(c.Request.Context(), p.ID, req.Position); err != nil {
		response.Internal(c, "failed to reorder poll")
		return
	}
	response.OK(c, gin.H{"id": p.ID, "position": req.Position})
}

// Delete handles DELETE /polls/:id (owner). Responses and questions cascade;
// image-choice option objects are removed from storage best-effort.
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.ownedPoll(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), p.ID); err != nil {
		response.Internal(c, "failed to delete poll")
		return
	}
	h.deleteImages(c, p)
	h.hub.BroadcastToSessionAndPublish(p.SessionID, "poll_deleted", gin.H{"id": p.ID})
	response.NoContent(c)
}

// deleteImages removes an image-choice poll's option objects from the images
// bucket. Failures are ignored; orphaned objects are harmless.
func (h *Handler) deleteImages(c *gin.Context, p *models.Poll) {
	if h.s3 == nil || p.Type != models.PollImageChoice {
		return
	}
	data, err := p.DecodeData()
	if err != nil {
		return
	}
	imgs, ok := data.(*models.ImageChoiceData)
	if !ok {
		return
	}
	for _, o := range imgs.Options {
		if key, ok := h.s3.ObjectKeyFromURL(o.ImageURL); ok {
			_ = h.s3.DeleteObject(c.Request.Context(), key)
		}
	}
}

// participantView renders a poll for participants. Quiz answer keys stay
// server-side until the poll is closed and configured to reveal them.
func participantView(p *models.Poll) (gin.H, error) {
	view := gin.H{
		"id":         p.ID,
		"session_id": p.SessionID,
		"type":       p.Type,
		"position":   p.Position,
		"launched":   p.Launched,
		"closed":     p.Closed,
	}
	if p.Type != models.PollQuiz {
		view["data"] = p.Data
		return view, nil
	}

	data, err := p.DecodeData()
	if err != nil {
		return nil, err
	}
	quiz := data.(*models.QuizData)
	if p.Closed && quiz.ShowCorrectAnswer {
		view["data"] = quiz
		return view, nil
	}
	options := make([]models.Option, len(quiz.Options))
	for i, o := range quiz.Options {
		options[i] = models.Option{ID: o.ID, Text: o.Text}
	}
	view["data"] = gin.H{
		"question":            quiz.Question,
		"options":             options,
		"show_correct_answer": quiz.ShowCorrectAnswer,
		"points_per_question": quiz.PointsPerQuestion,
	}
	return view, nil
}

// ownedPoll parses :id, loads the poll and enforces session ownership.
func (h *Handler) ownedPoll(c *gin.Context) (*models.Poll, bool) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return nil, false
	}
	p, err := h.repo.GetByID(c.Request.Context(), pollID)
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
