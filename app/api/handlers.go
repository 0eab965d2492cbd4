package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/secnews/app/archive"
	"github.com/lysyi3m/secnews/app/database"
	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/history"
	"github.com/lysyi3m/secnews/app/snapshot"
	"github.com/lysyi3m/secnews/app/storage"
)

// NewHandler builds the HTTP handlers. articles may be nil when the search
// index is disabled.
func NewHandler(p PipelineInterface, articles database.ArticleRepository, version string) *Handler {
	return &Handler{
		pipeline:  p,
		articles:  articles,
		generator: feed.NewGenerator(),
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"sources":   len(h.pipeline.Sources()),
	}

	if report := h.pipeline.LastReport(); report != nil {
		health["last_run"] = report.StartedAt.Format(time.RFC3339)
		health["failed_sources"] = report.FailedSources()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"last_run": h.pipeline.LastReport(),
	}

	var doc archive.Document
	if exists, err := storage.ReadDocument(h.pipeline.ArchivePath(), &doc); err == nil && exists {
		stats["archive"] = map[string]interface{}{
			"count":          len(doc.Items),
			"last_updated":   doc.LastUpdated,
			"retention_days": doc.RetentionDays,
		}
	}

	if h.articles != nil {
		if indexStats, err := h.articles.GetStats(c.Request.Context()); err == nil {
			stats["index"] = indexStats
		} else {
			slog.Error("Database error", "operation", "get_stats", "error", err)
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetNews(c *gin.Context) {
	h.serveDocument(c, h.pipeline.SnapshotPath())
}

func (h *Handler) GetArchive(c *gin.Context) {
	h.serveDocument(c, h.pipeline.ArchivePath())
}

func (h *Handler) GetHistoryIndex(c *gin.Context) {
	h.serveDocument(c, h.pipeline.History().IndexPath())
}

func (h *Handler) GetHistoryDay(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(history.DayLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be in YYYY-MM-DD format"})
		return
	}

	h.serveDocument(c, h.pipeline.History().DayPath(date))
}

func (h *Handler) serveDocument(c *gin.Context, path string) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		slog.Error("Failed to stat document", "path", path, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.File(path)
}

func (h *Handler) GetFeed(c *gin.Context) {
	var doc snapshot.Document
	exists, err := storage.ReadDocument(h.pipeline.SnapshotPath(), &doc)
	if err != nil {
		slog.Error("Snapshot unreadable", "path", h.pipeline.SnapshotPath(), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}

	channel := feed.Channel{
		Title:       "Security News",
		Link:        fmt.Sprintf("http://%s/", c.Request.Host),
		Description: "Aggregated security news",
		SelfLink:    fmt.Sprintf("http://%s/feed.xml", c.Request.Host),
		Generator:   fmt.Sprintf("SecNews/%s", h.version),
	}
	if updated, ok := feed.ParseDate(doc.LastUpdated); ok {
		channel.LastBuildDate = updated
	}

	rss, err := h.generator.Run(channel, doc.Items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(doc.Items)))
	c.Header("X-Last-Updated", doc.LastUpdated)

	c.String(http.StatusOK, rss)
}

func (h *Handler) APISearch(c *gin.Context) {
	if h.articles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search index disabled (DB_PATH not set)"})
		return
	}

	limit := database.DefaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	query := c.Query("q")
	results, err := h.articles.Search(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("Database error", "operation", "search", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"count": len(results),
		"items": results,
	})
}

func (h *Handler) APIRun(c *gin.Context) {
	// A run outlives the request that triggered it
	ctx := context.WithoutCancel(c.Request.Context())

	report, err := h.pipeline.Run(ctx)
	if errors.Is(err, storage.ErrLocked) {
		c.JSON(http.StatusConflict, gin.H{"error": "A run is already in progress"})
		return
	}
	if err != nil {
		slog.Error("Triggered run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Run failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}
