package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pollsterHook/internal/chainhook"
	"pollsterHook/internal/pollster"
)

const serviceName = "pollster-backend"

// Processor is the part of pollster.Processor the server needs.
type Processor interface {
	Process(ctx context.Context, payload *chainhook.Payload) (pollster.Summary, error)
}

// CursorReader exposes the per-chainhook block cursor.
type CursorReader interface {
	LastBlock(ctx context.Context, chainhookUUID string) (uint64, bool, error)
}

// Config holds the HTTP-facing settings.
type Config struct {
	Environment     string
	Network         string
	ContractAddress string
	ContractName    string
	WebhookPath     string
	WebhookToken    string
	BodyLimit       int64
}

func (c Config) development() bool {
	return c.Environment == "development"
}

// Server serves the webhook endpoint and its companions.
type Server struct {
	cfg       Config
	processor Processor
	cursor    CursorReader
	logger    *zap.Logger
	now       func() time.Time
}

// New builds a Server. cursor may be nil.
func New(cfg Config, processor Processor, cursor CursorReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhook"
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 10 << 20
	}
	return &Server{cfg: cfg, processor: processor, cursor: cursor, logger: logger, now: time.Now}
}

// Router returns the gin engine with all routes and middleware installed.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(s.recovery())
	router.Use(loggingMiddleware(s.logger))
	router.Use(corsMiddleware())

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.POST(s.cfg.WebhookPath, s.handleWebhook)
	router.GET("/cursor/:uuid", s.handleCursor)

	return router
}

func (s *Server) contract() string {
	return s.cfg.ContractAddress + "." + s.cfg.ContractName
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Pollster Backend",
		"description": "Webhook server for Pollster voting contract on Stacks",
		"endpoints": gin.H{
			"health":  "/health",
			"webhook": s.cfg.WebhookPath + " (POST)",
			"cursor":  "/cursor/:uuid",
		},
		"contract": gin.H{
			"address": s.cfg.ContractAddress,
			"name":    s.cfg.ContractName,
			"network": s.cfg.Network,
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   serviceName,
		"network":   s.cfg.Network,
		"contract":  s.contract(),
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	if !s.authorized(c.GetHeader("Authorization")) {
		s.logger.Warn("unauthorized webhook", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.BodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "payload too large"})
			return
		}
		s.fail(c, fmt.Errorf("read body: %w", err))
		return
	}

	payload, err := chainhook.ParsePayload(body)
	if err != nil {
		s.fail(c, err)
		return
	}

	// The chainhook service may drop the connection before we finish; the
	// pass still runs to completion.
	summary, err := s.processor.Process(context.WithoutCancel(c.Request.Context()), payload)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"eventsProcessed": summary.EventsProcessed,
		"deliveryId":      summary.DeliveryID,
	})
}

func (s *Server) handleCursor(c *gin.Context) {
	if s.cursor == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cursor tracking disabled"})
		return
	}
	id := c.Param("uuid")
	height, ok, err := s.cursor.LastBlock(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("load cursor failed", zap.Error(err), zap.String("chainhook_uuid", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chainhook"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chainhook_uuid": id, "last_block_height": height})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("error processing webhook", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

func (s *Server) authorized(header string) bool {
	if s.cfg.WebhookToken == "" {
		return true
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.WebhookToken)) == 1
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("server error", zap.Any("panic", recovered))
		resp := gin.H{"error": "Internal server error"}
		if s.cfg.development() {
			resp["message"] = fmt.Sprint(recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
