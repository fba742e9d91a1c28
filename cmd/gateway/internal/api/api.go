package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/content"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/gateway"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/hub"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/repository"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/session"
)

const (
	sessionContextKey   = "session"
	requestIDContextKey = "request_id"
	requestIDHeaderKey  = "X-Request-ID"
)

// ContentService is the generative-content boundary consumed by the REST
// handlers.
type ContentService interface {
	RequestAnalysis(ctx context.Context, topic string) string
	AnalyzeStrategy(ctx context.Context, marketContext string) *content.StrategyAnalysis
	RequestVideo(ctx context.Context, prompt string) (string, error)
}

// Handler wires the gateway's HTTP surface: sessions, market snapshots,
// generative content, and the websocket upgrade.
type Handler struct {
	logger       *zap.Logger
	store        repository.PriceStore
	sessions     *session.Manager
	content      ContentService
	hub          *hub.Hub
	validTickers map[string]bool
}

func NewHandler(logger *zap.Logger, store repository.PriceStore, sessions *session.Manager, content ContentService, wsHub *hub.Hub, validTickers map[string]bool) *Handler {
	return &Handler{
		logger:       logger,
		store:        store,
		sessions:     sessions,
		content:      content,
		hub:          wsHub,
		validTickers: validTickers,
	}
}

// Router assembles the gin engine with the full middleware chain.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(loggerMiddleware(h.logger))
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", h.HealthCheck)
	r.GET("/ws", h.UpgradeWS)

	apiGroup := r.Group("/api")
	apiGroup.POST("/login", h.Login)
	apiGroup.GET("/quotes", h.GetQuotes)
	apiGroup.GET("/candles", h.GetCandles)

	authed := apiGroup.Group("")
	authed.Use(h.authMiddleware())
	authed.POST("/logout", h.Logout)
	authed.POST("/research", h.RequestResearch)
	authed.POST("/strategy", h.AnalyzeStrategy)
	authed.POST("/videos", h.RequestVideo)

	return r
}

// UpgradeWS hands the raw connection to the hub's client adapter.
func (h *Handler) UpgradeWS(c *gin.Context) {
	conn, _, _, err := ws.UpgradeHTTP(c.Request, c.Writer)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	client := gateway.NewClient(conn, h.hub, h.logger, h.validTickers)
	client.Start()
}

// HealthCheck reports process liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
