package telephony

import (
	"errors"
	"net/http"
	"strings"

	"recording-relay/internal/calls"
	"recording-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

type callStateRequest struct {
	State       string `json:"state" binding:"required"`
	PhoneNumber string `json:"phone_number"`
}

type connectivityRequest struct {
	Connected *bool `json:"connected" binding:"required"`
}

// EventHandlers accept events posted by the device bridge.
type EventHandlers struct {
	Calls   CallSink
	Network ConnectivitySink
}

func (h EventHandlers) CallState(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call monitor not configured"})
		return
	}

	var req callStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	st, err := calls.ParseState(req.State)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
		return
	}

	if err := h.Calls.Handle(c.Request.Context(), calls.StateChange{State: st, PhoneNumber: strings.TrimSpace(req.PhoneNumber)}); err != nil {
		writeSinkError(c, err)
		return
	}
	log.Debug("call state accepted", "state", string(st))
	c.Status(http.StatusAccepted)
}

func (h EventHandlers) Connectivity(c *gin.Context) {
	if h.Network == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "connectivity monitor not configured"})
		return
	}

	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	n, err := h.Network.Observe(c.Request.Context(), *req.Connected)
	if err != nil {
		logger.FromGin(c).Error("connectivity handling failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "retry failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"retries_issued": n})
}

// TwilioStatusHandler turns Twilio status callbacks into call-state changes.
// When AuthToken is set every request must carry a valid X-Twilio-Signature
// computed over PublicURL + request URI.
type TwilioStatusHandler struct {
	Calls     CallSink
	AuthToken string
	PublicURL string
}

func (h TwilioStatusHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call monitor not configured"})
		return
	}

	form, err := ParseTwilioStatus(c.Request)
	if err != nil {
		log.Warn("twilio status parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if h.AuthToken != "" {
		full := strings.TrimRight(h.PublicURL, "/") + c.Request.URL.RequestURI()
		if !ValidTwilioSignature(h.AuthToken, full, c.Request.PostForm, c.GetHeader(TwilioSignatureHeader)) {
			log.Warn("twilio signature rejected", "call_sid", form.CallSid)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
	}

	ch, err := form.StateChange()
	switch {
	case errors.Is(err, ErrIgnoredStatus):
		log.Debug("twilio status ignored", "call_sid", form.CallSid, "status", form.CallStatus)
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	default:
		if err := h.Calls.Handle(c.Request.Context(), ch); err != nil {
			writeSinkError(c, err)
			return
		}
	}

	twiml, err := RenderEmptyTwiML()
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

func writeSinkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calls.ErrUnknownState):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
	case errors.Is(err, calls.ErrClosed):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
	default:
		logger.FromGin(c).Error("call event handling failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
