package app

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/realestate-linebot-go/internal/ctxutil"
	"github.com/garyellow/realestate-linebot-go/internal/datastore"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/orchestrator"
	"github.com/garyellow/realestate-linebot-go/internal/stringutil"
)

const (
	// maxQueryRunes bounds the query text accepted by the HTTP API.
	maxQueryRunes = 1000

	readinessPingTimeout = 3 * time.Second
)

// Query modes.
const (
	modeSingle = "single"
	modeMulti  = "multi"
)

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Mode      string `json:"mode"`
}

type chartPayload struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

type queryResponse struct {
	SessionID string `json:"session_id"`
	orchestrator.Result
	Chart *chartPayload `json:"chart,omitempty"`
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	if !a.readinessState.IsReady() {
		status := a.readinessState.Status()
		a.logger.WithField("elapsed_seconds", status.ElapsedSeconds).
			WithField("timeout_seconds", status.TimeoutSeconds).
			Debug("Readiness check: preload in progress")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not ready",
			"reason":   status.Reason,
			"progress": status,
		})
		return
	}

	memoryBackend := "in_process"
	if a.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessPingTimeout)
		defer cancel()
		if err := a.db.Ping(ctx); err != nil {
			a.logger.WithError(err).Warn("Readiness check failed: memory database unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "memory database unavailable",
			})
			return
		}
		memoryBackend = "sqlite"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"readiness": a.readinessState.Status(),
		"cache": gin.H{
			"enabled": a.data.Enabled(),
			"entries": a.data.Status(),
		},
		"features": gin.H{
			"llm":  a.orchestrator.LLMEnabled(),
			"line": a.webhookHandler != nil,
		},
		"memory": memoryBackend,
	})
}

// handleQuery answers one query turn. A missing session ID starts a new
// session whose ID is returned for follow-up questions.
func (a *Application) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = modeSingle
	}
	if mode != modeSingle && mode != modeMulti {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be single or multi"})
		return
	}
	if stringutil.RuneLen(req.Query) > maxQueryRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is too long"})
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if !a.sessions.Allow(sessionID) {
		c.Header("Retry-After", strconv.Itoa(a.retryAfterSeconds()))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      apperrors.ErrRateLimitExceeded.Error(),
			"session_id": sessionID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), a.cfg.QueryTimeout)
	defer cancel()
	ctx = ctxutil.WithSessionID(ctx, sessionID)

	var res orchestrator.Result
	if mode == modeMulti {
		res = a.orchestrator.ProcessMulti(ctx, sessionID, req.Query)
	} else {
		res = a.orchestrator.Process(ctx, sessionID, req.Query)
	}

	resp := queryResponse{SessionID: sessionID, Result: res}
	if res.HasChart() {
		resp.Chart = &chartPayload{
			ContentType: res.Chart.ContentType,
			Data:        base64.StdEncoding.EncodeToString(res.Chart.Data),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// retryAfterSeconds is the time one token takes to refill.
func (a *Application) retryAfterSeconds() int {
	if a.cfg.SessionRateRefill <= 0 {
		return 60
	}
	return max(1, int(1/a.cfg.SessionRateRefill+0.5))
}

func (a *Application) cacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled":     a.data.Enabled(),
		"ttl_seconds": a.cfg.CacheTTL.Seconds(),
		"entries":     a.data.Status(),
	})
}

type cacheToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (a *Application) setCacheEnabled(c *gin.Context) {
	var req cacheToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `body must be {"enabled": true|false}`})
		return
	}
	a.data.Enable(*req.Enabled)
	a.logger.WithField("enabled", *req.Enabled).Info("Cache toggled")
	c.JSON(http.StatusOK, gin.H{"enabled": a.data.Enabled()})
}

// clearCache drops one city's table, or every table when no city is given.
func (a *Application) clearCache(c *gin.Context) {
	city := c.Param("city")
	if err := a.data.Clear(city); err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a.logger.WithError(err).Error("Failed to clear cache")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}

	cleared := city
	if cleared == "" {
		cleared = datastore.KeyAll
	}
	a.logger.WithField("city", cleared).Info("Cache cleared")
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (a *Application) clearSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := a.orchestrator.Memory().Clear(c.Request.Context(), sessionID); err != nil {
		a.logger.WithSessionID(sessionID).WithError(err).Error("Failed to clear session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": sessionID})
}
