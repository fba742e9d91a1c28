package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/content"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/session"
	"github.com/Muhsin-Gun/aurora/pkg/candles"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login fabricates a demo session. Any non-empty credentials are accepted;
// the role is resolved to capabilities server-side.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	role := models.Role(strings.ToUpper(req.Role))
	sess, err := h.sessions.Login(req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "email and password are required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: sess.Token, User: sess.User})
}

// Logout discards the caller's session.
func (h *Handler) Logout(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	h.sessions.Logout(token)
	c.Status(http.StatusNoContent)
}

// GetQuotes returns the latest quote snapshots for a comma-separated
// symbol list.
func (h *Handler) GetQuotes(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols query parameter is required"})
		return
	}

	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if h.validTickers[s] {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid symbols provided"})
		return
	}

	snapshots, err := h.store.GetSnapshots(c.Request.Context(), symbols)
	if err != nil {
		h.serverError(c, "Snapshot fetch failed", err)
		return
	}

	quotes := make([]models.Quote, 0, len(snapshots))
	for _, snap := range snapshots {
		var q models.Quote
		if err := json.Unmarshal([]byte(snap), &q); err != nil {
			continue
		}
		quotes = append(quotes, q)
	}
	c.JSON(http.StatusOK, quotes)
}

// GetCandles returns the symbol's candle window, optionally re-aggregated
// to a coarser display interval.
func (h *Handler) GetCandles(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if !h.validTickers[symbol] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown symbol"})
		return
	}

	interval := c.DefaultQuery("interval", "1m")
	intervalMs := candles.IntervalMs(interval)
	if intervalMs == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown interval: " + interval})
		return
	}

	window, err := h.store.GetCandles(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusOK, []models.Candle{})
		return
	}

	if interval != "1m" {
		window = candles.Aggregate(window, intervalMs)
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if len(window) > limit {
			window = window[len(window)-limit:]
		}
	}

	c.JSON(http.StatusOK, window)
}

type researchRequest struct {
	Topic string `json:"topic"`
}

// RequestResearch proxies a text-generation request. Failures surface as
// the fixed fallback text with a 200; the terminal treats research as
// best-effort.
func (h *Handler) RequestResearch(c *gin.Context) {
	if _, ok := requireCapability(c, models.CapRequestAnalysis); !ok {
		return
	}

	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}

	text := h.content.RequestAnalysis(c.Request.Context(), req.Topic)
	c.JSON(http.StatusOK, gin.H{"text": text})
}

type strategyRequest struct {
	MarketContext string `json:"market_context"`
}

// AnalyzeStrategy proxies a structured setup analysis. A failed analysis
// returns a null setup with a 200; the panel just stays empty.
func (h *Handler) AnalyzeStrategy(c *gin.Context) {
	if _, ok := requireCapability(c, models.CapRequestAnalysis); !ok {
		return
	}

	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.MarketContext) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market_context is required"})
		return
	}

	setup := h.content.AnalyzeStrategy(c.Request.Context(), req.MarketContext)
	c.JSON(http.StatusOK, gin.H{"setup": setup})
}

type videoRequest struct {
	Prompt string `json:"prompt"`
}

// RequestVideo submits a video-generation job and waits for it. The
// request context carries the cancellation: a client that navigates away
// stops the polling loop.
func (h *Handler) RequestVideo(c *gin.Context) {
	if _, ok := requireCapability(c, models.CapRequestVideo); !ok {
		return
	}

	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	url, err := h.content.RequestVideo(c.Request.Context(), req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			c.Status(499) // client closed request
		case errors.Is(err, content.ErrPollLimit):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		case errors.Is(err, content.ErrKeyRejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": "content service credential rejected"})
		default:
			h.serverError(c, "Video generation failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) serverError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg,
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      "internal server error",
		"request_id": c.GetString(requestIDContextKey),
	})
}
