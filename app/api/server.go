package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/status", handler.GetStatus)
	r.GET("/ws/status", handler.StreamStatus)
	r.GET("/contents", handler.GetContents)
	r.GET("/download/:format", handler.GetDownload)
	r.GET("/runs", handler.GetRuns)
	r.GET("/runs/:id", handler.GetRun)
	r.GET("/sources", handler.GetSources)
	r.GET("/sources/:name", handler.GetSource)
	r.GET("/health", handler.GetHealth)

	// Actions that start work or send mail are guarded when a key is configured.
	actions := r.Group("/")
	if apiAccessKey != "" {
		actions.Use(authMiddleware(apiAccessKey))
		slog.Info("Action endpoints require authentication")
	} else {
		slog.Warn("Action endpoints are unauthenticated (API_ACCESS_KEY not set)")
	}
	actions.POST("/generate", handler.PostGenerate)
	actions.POST("/send", handler.PostSend)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "News Digest",
			"version":     "1.0.0",
			"description": "Daily news digest e-book generator",
			"endpoints": map[string]string{
				"status":   "/status",
				"stream":   "/ws/status",
				"generate": "/generate (POST: article_count, sections)",
				"contents": "/contents",
				"download": "/download/<epub|mobi>",
				"send":     "/send (POST: email)",
				"runs":     "/runs",
				"run":      "/runs/<id>",
				"sources":  "/sources",
				"source":   "/sources/<name>",
				"health":   "/health",
			},
			"auth_required": apiAccessKey != "",
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
