package participants

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grouppulse/backend/internal/middleware"
	"github.com/grouppulse/backend/internal/sessions"
	"github.com/grouppulse/backend/pkg/response"
)

// Handler exposes the attendee log to session owners.
type Handler struct {
	repo        *Repository
	sessionRepo *sessions.Repository
}

// NewHandler creates a participants handler.
func NewHandler(repo *Repository, sessionRepo *sessions.Repository) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo}
}

// ListBySession handles GET /sessions/:id/participants (owner).
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, ok := h.ownedSession(c)
	if !ok {
		return
	}
	list, err := h.repo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list participants")
		return
	}
	distinct, err := h.repo.DistinctParticipantCount(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to count participants")
		return
	}
	response.OK(c, gin.H{"events": list, "distinct_participants": distinct})
}

func (h *Handler) ownedSession(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.sessionRepo.IsOwner(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.NotFound(c, "session not found")
		return uuid.Nil, false
	}
	if !ok {
		response.Forbidden(c, "not the session owner")
		return uuid.Nil, false
	}
	return sessionID, true
}
