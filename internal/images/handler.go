package images

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grouppulse/backend/internal/middleware"
	"github.com/grouppulse/backend/internal/sessions"
	"github.com/grouppulse/backend/pkg/response"
	"github.com/grouppulse/backend/pkg/storage"
)

// PresignRequest is the body for POST /sessions/:id/images/presign.
type PresignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Handler issues pre-signed upload URLs for image-choice option images.
// Clients upload directly to S3 and put the returned public URL into the
// poll's image options.
type Handler struct {
	s3          *storage.S3
	sessionRepo *sessions.Repository
}

// NewHandler creates an images handler. s3 may be nil when object storage is
// not configured; the route should not be mounted in that case.
func NewHandler(s3 *storage.S3, sessionRepo *sessions.Repository) *Handler {
	return &Handler{s3: s3, sessionRepo: sessionRepo}
}

// Presign handles POST /sessions/:id/images/presign (owner).
func (h *Handler) Presign(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	owner, err := h.sessionRepo.IsOwner(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}
	if !owner {
		response.Forbidden(c, "not the session owner")
		return
	}

	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateImageFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}
	if req.SizeBytes > storage.MaxImageFileSize {
		response.BadRequest(c, fmt.Sprintf("image exceeds %d bytes", storage.MaxImageFileSize))
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	// Prefix the object with a fresh UUID so repeated filenames never clash.
	key := storage.ImageKey(sessionID.String(), uuid.NewString()+"-"+req.Filename)
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, h.s3.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   url,
		"public_url":   h.s3.PublicObjectURL(key),
		"key":          key,
		"content_type": contentType,
		"expires_in":   int(h.s3.PresignExpire().Seconds()),
	})
}
