package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/lysyi3m/news-digest/app/publish"
	"github.com/lysyi3m/news-digest/app/tasks"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100

	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

func NewHandler(controller ControllerInterface, runRepo database.RunRepository, artifacts ArtifactStore,
	sender Sender, sources SourceCatalog) *Handler {
	return &Handler{
		controller: controller,
		runRepo:    runRepo,
		artifacts:  artifacts,
		sender:     sender,
		sources:    sources,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

func (h *Handler) PostGenerate(c *gin.Context) {
	req := digest.Request{Sections: formList(c, "sections")}

	if raw := formValue(c, "article_count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			slog.Warn("Invalid article count", "value", raw, "error", err)
		}
		req.ItemCount = count
	}

	runID, started := h.controller.TryStart(tasks.TriggerManual, req)
	if !started {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Generation already in progress",
			"state": h.controller.Snapshot(),
		})
		return
	}

	c.JSON(http.StatusAccepted, GenerateResponse{
		RunID:    runID,
		Sections: req.Sections,
		State:    h.controller.Snapshot(),
	})
}

func (h *Handler) GetRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runRepo.GetRecentRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if runs == nil {
		runs = []database.Run{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runRepo.GetRun(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) GetSources(c *gin.Context) {
	configs := h.sources.GetEnabledConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))
	for _, sourceConfig := range configs {
		sources = append(sources, map[string]interface{}{
			"name":      sourceConfig.Name,
			"section":   sourceConfig.SectionName(),
			"url":       sourceConfig.URL,
			"order":     sourceConfig.Settings.Order,
			"max_items": sourceConfig.Settings.MaxItems,
			"filters":   len(sourceConfig.Filters),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) GetSource(c *gin.Context) {
	name := c.Param("name")

	sourceConfig, err := h.sources.GetConfig(name)
	if err != nil {
		slog.Warn("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"name":             sourceConfig.Name,
		"section":          sourceConfig.SectionName(),
		"url":              sourceConfig.URL,
		"enabled":          sourceConfig.Settings.Enabled,
		"order":            sourceConfig.Settings.Order,
		"max_items":        sourceConfig.Settings.MaxItems,
		"timeout":          (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
		"image_preference": sourceConfig.Settings.ImagePreference,
		"filters":          sourceConfig.Filters,
	})
}

func (h *Handler) GetContents(c *gin.Context) {
	response := ContentsResponse{Titles: []string{}}

	run, err := h.runRepo.GetLatestCompletedRun()
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_completed_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run != nil {
		response.Titles = append(response.Titles, run.Titles...)
		response.GeneratedAt = run.FinishedAt
	}

	if response.Epub, err = h.artifacts.Latest(publish.FormatEpub); err != nil {
		slog.Error("Failed to list artifacts", "format", publish.FormatEpub, "error", err)
	}
	if response.Mobi, err = h.artifacts.Latest(publish.FormatMobi); err != nil {
		slog.Error("Failed to list artifacts", "format", publish.FormatMobi, "error", err)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetDownload(c *gin.Context) {
	format := c.Param("format")

	artifact, err := h.artifacts.Latest(format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if artifact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No " + format + " artifact available"})
		return
	}

	c.Header("X-Artifact-Size", strconv.FormatInt(artifact.Size, 10))
	c.FileAttachment(artifact.Path, artifact.Name)
}

func (h *Handler) PostSend(c *gin.Context) {
	email := strings.TrimSpace(formValue(c, "email"))

	artifact, err := h.artifacts.Latest(publish.FormatEpub)
	if err != nil {
		slog.Error("Failed to list artifacts", "format", publish.FormatEpub, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list artifacts"})
		return
	}
	if artifact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No epub artifact available"})
		return
	}

	if err := h.sender.Send(c.Request.Context(), artifact.Path, email); err != nil {
		slog.Error("Delivery failed", "artifact", artifact.Name, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, digest.ErrConfig) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":   "Failed to send artifact",
			"details": err.Error(),
		})
		return
	}

	recipient := email
	if recipient == "" {
		recipient = "default"
	}
	slog.Info("Artifact sent", "artifact", artifact.Name, "recipient", recipient)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"artifact": artifact,
	})
}

// StreamStatus upgrades to a websocket and pushes the current state followed by
// every transition until the client goes away.
func (h *Handler) StreamStatus(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.controller.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeState(conn, h.controller.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := writeState(conn, state); err != nil {
				slog.Debug("Websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"state":     h.controller.Snapshot(),
	}

	if h.sources != nil {
		health["loaded_configurations"] = h.sources.GetConfigCount()
	}

	if run, err := h.runRepo.GetLatestCompletedRun(); err == nil && run != nil {
		health["last_completed_run"] = run.FinishedAt
	}

	c.JSON(http.StatusOK, health)
}

func writeState(conn *websocket.Conn, state digest.State) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(state)
}

// formValue reads key from the form body, falling back to the query string.
func formValue(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return v
	}
	return c.Query(key)
}

// formList collects repeated or comma-separated values of key.
func formList(c *gin.Context, key string) []string {
	raw := append(c.PostFormArray(key), c.QueryArray(key)...)

	var values []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}
