package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"recording-relay/internal/auth"
	"recording-relay/internal/documents"
	"recording-relay/internal/failurelog"
	"recording-relay/internal/uploads"
	"recording-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Retrier replays the failure log on demand (netwatch.Monitor).
type Retrier interface {
	RetryAll(ctx context.Context) (int, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Session   *auth.Session
	Policy    auth.Policy
	Failures  failurelog.Store
	Retrier   Retrier
	Journal   uploads.Journal
	Documents documents.Repository
}

// --- Session ---

// SignIn makes the caller's bearer token the device session used for uploads.
func (h Handlers) SignIn(c *gin.Context) {
	if h.Session == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not configured"})
		return
	}
	tok, err := auth.Token(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}

	p, err := h.Session.SignIn(tok)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	authorized := h.Policy != nil && h.Policy(p)
	logger.FromGin(c).Info("device session signed in", "user_id", p.UserID, "upload_authorized", authorized)
	c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "email": p.Email, "upload_authorized": authorized})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshSession exchanges a refresh token for a new pair and signs the new
// access token in. It is public: the access token may already have expired.
func (h Handlers) RefreshSession(c *gin.Context) {
	if h.Session == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	pair, p, err := h.Session.Refresh(req.RefreshToken)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	authorized := h.Policy != nil && h.Policy(p)
	logger.FromGin(c).Info("device session refreshed", "user_id", p.UserID, "upload_authorized", authorized)
	c.JSON(http.StatusOK, gin.H{
		"access_token":      pair.AccessToken,
		"refresh_token":     pair.RefreshToken,
		"upload_authorized": authorized,
	})
}

func (h Handlers) SignOut(c *gin.Context) {
	if h.Session == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not configured"})
		return
	}
	h.Session.SignOut()
	c.Status(http.StatusNoContent)
}

// --- Failure log ---

func (h Handlers) ListFailures(c *gin.Context) {
	if h.Failures == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failure log not configured"})
		return
	}
	all, err := h.Failures.All(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("failure log read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failure log unavailable"})
		return
	}

	handles := make([]string, 0, len(all))
	for _, v := range all {
		handles = append(handles, v)
	}
	sort.Strings(handles)
	c.JSON(http.StatusOK, gin.H{"failures": handles, "count": len(handles)})
}

// RetryFailures issues one retry per logged failure, as a reconnect would.
func (h Handlers) RetryFailures(c *gin.Context) {
	if h.Retrier == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "retrier not configured"})
		return
	}
	n, err := h.Retrier.RetryAll(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("manual retry failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "retry failed"})
		return
	}
	actor, _ := auth.UserID(c.Request.Context())
	logger.FromGin(c).Info("manual retry issued", "actor", actor, "count", n)
	c.JSON(http.StatusAccepted, gin.H{"retries_issued": n})
}

// --- Upload journal ---

const maxListLimit = 500

func (h Handlers) ListUploads(c *gin.Context) {
	if h.Journal == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "journal not configured"})
		return
	}
	limit := 100
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := h.Journal.List(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("journal read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}
	if recs == nil {
		recs = []uploads.UploadRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"uploads": recs})
}

// --- Documents ---

// GetDocument returns the parent document and its records for one number.
func (h Handlers) GetDocument(c *gin.Context) {
	if h.Documents == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "document store not configured"})
		return
	}
	col := documents.Collection(c.Param("collection"))
	if !col.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown collection"})
		return
	}
	phone := c.Param("phone")

	parent, err := h.Documents.Parent(c.Request.Context(), col, phone)
	if errors.Is(err, documents.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("document read failed", "collection", string(col), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "document store unavailable"})
		return
	}

	recs, err := h.Documents.Records(c.Request.Context(), col, phone)
	if err != nil {
		logger.FromGin(c).Error("records read failed", "collection", string(col), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "document store unavailable"})
		return
	}
	if recs == nil {
		recs = []documents.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"document": parent, "records": recs})
}
