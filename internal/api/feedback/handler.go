package feedback

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"firetrack-site/internal/domain/feedback"
)

type Handler struct {
	Store *feedback.Store
	Log   *zap.Logger
}

// GET /api/feature-requests?status=&email=
// With an email the response also says which requests that voter backed.
func (h *Handler) ListRequests(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !feedback.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	ctx := c.Request.Context()

	list, err := h.Store.List(ctx, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feature requests", "details": err.Error()})
		return
	}

	resp := gin.H{"requests": list, "max_votes": feedback.MaxVotesPerEmail}
	if email := c.Query("email"); email != "" {
		ids, err := h.Store.VotedRequestIDs(ctx, email)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if ids == nil {
			ids = []uint{}
		}
		resp["voted"] = ids
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/feature-requests
func (h *Handler) CreateRequest(c *gin.Context) {
	var body struct {
		Title       string `json:"title" binding:"required,max=200"`
		Description string `json:"description" binding:"max=5000"`
		Email       string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required", "details": err.Error()})
		return
	}

	fr, err := h.Store.Create(c.Request.Context(), body.Title, body.Description, body.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fr)
}

// POST /api/feature-requests/:id/vote
func (h *Handler) Vote(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feature request id"})
		return
	}
	var body struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": feedback.ErrInvalidEmail.Error()})
		return
	}

	fr, err := h.Store.CastVote(c.Request.Context(), uint(id), body.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fr)
}

// GET /api/feature-votes/count?email=
func (h *Handler) VoteCount(c *gin.Context) {
	n, err := h.Store.VoteCount(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	remaining := int64(feedback.MaxVotesPerEmail) - n
	if remaining < 0 {
		remaining = 0
	}
	c.JSON(http.StatusOK, gin.H{"count": n, "max": feedback.MaxVotesPerEmail, "remaining": remaining})
}

// PATCH /admin/feature-requests/:id
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feature request id"})
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !feedback.ValidStatus(body.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	if err := h.Store.UpdateStatus(c.Request.Context(), uint(id), body.Status); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": body.Status})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feedback.ErrVoteLimitReached), errors.Is(err, feedback.ErrAlreadyVoted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, feedback.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, feedback.ErrInvalidEmail), errors.Is(err, feedback.ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.Log.Error("feedback store error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}
