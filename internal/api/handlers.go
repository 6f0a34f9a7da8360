package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ai-research-platform/internal/models"
	"ai-research-platform/internal/render"
	"ai-research-platform/internal/services"
	"ai-research-platform/internal/utils"
	"ai-research-platform/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	research          *services.ResearchService
	models            map[string]models.ModelInfo
	defaultModel      string
	backendConfigured bool
	logger            *zap.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	research *services.ResearchService,
	modelInfo map[string]models.ModelInfo,
	defaultModel string,
	backendConfigured bool,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		research:          research,
		models:            modelInfo,
		defaultModel:      defaultModel,
		backendConfigured: backendConfigured,
		logger:            logger,
	}
}

// StartResearchHandler handles POST /api/research
func (h *Handlers) StartResearchHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	req, err := validation.ParseResearchRequest(body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	task, err := h.research.Start(c.Request.Context(), *req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Return task ID immediately; research continues in the background
	c.JSON(http.StatusAccepted, models.TaskResponse{
		TaskID:    task.TaskID,
		Status:    task.Status,
		Progress:  task.Progress,
		CreatedAt: task.CreatedAt,
	})
}

// GetStatusHandler handles GET /api/research/:taskId/status
func (h *Handlers) GetStatusHandler(c *gin.Context) {
	task, err := h.research.Status(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		TaskID:       task.TaskID,
		Status:       task.Status,
		Progress:     task.Progress,
		Query:        task.Query,
		Model:        task.Model,
		ResearchType: task.ResearchType,
		CreatedAt:    task.CreatedAt,
		StartedAt:    task.StartedAt,
		CompletedAt:  task.CompletedAt,
		Error:        task.ErrorMessage,
	})
}

// GetProgressiveHandler handles GET /api/research/:taskId/progressive
func (h *Handlers) GetProgressiveHandler(c *gin.Context) {
	progressive, err := h.research.Progressive(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progressive)
}

// PreviousResultsHandler handles GET /api/research/previous
func (h *Handlers) PreviousResultsHandler(c *gin.Context) {
	previous, err := h.research.PreviousResults(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, previous)
}

// GetResultHandler handles GET /api/research/:taskId/result
func (h *Handlers) GetResultHandler(c *gin.Context) {
	result, err := h.research.Result(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DownloadHandler handles GET /api/research/:taskId/download
func (h *Handlers) DownloadHandler(c *gin.Context) {
	doc, err := h.research.Document(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(doc.Content))
}

// ListDocumentsHandler handles GET /api/research/documents
func (h *Handlers) ListDocumentsHandler(c *gin.Context) {
	researchType := models.ResearchType(c.Query("research_type"))
	if researchType != "" && !researchType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown research type %q", researchType)})
		return
	}

	docs, err := h.research.Documents(c.Request.Context(), researchType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// ListResultsHandler handles GET /api/research/results
func (h *Handlers) ListResultsHandler(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	results, err := h.research.Results(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// DeleteResearchHandler handles DELETE /api/research/:taskId
func (h *Handlers) DeleteResearchHandler(c *gin.Context) {
	taskID := c.Param("taskId")
	if err := h.research.Delete(c.Request.Context(), taskID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "research task deleted", "task_id": taskID})
}

// ListModelsHandler handles GET /api/models
func (h *Handlers) ListModelsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":  h.models,
		"default": h.defaultModel,
	})
}

// DashboardOverviewHandler handles GET /api/dashboard/overview
func (h *Handlers) DashboardOverviewHandler(c *gin.Context) {
	overview, err := h.research.Overview(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// DashboardIdeasHandler handles GET /api/dashboard/ideas
func (h *Handlers) DashboardIdeasHandler(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ideas, err := h.research.Ideas(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": ideas, "count": len(ideas)})
}

// ReportPageHandler handles GET /research/:taskId and renders the report as HTML
func (h *Handlers) ReportPageHandler(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := h.research.Status(ctx, c.Param("taskId"))
	if errors.Is(err, services.ErrTaskNotFound) {
		c.String(http.StatusNotFound, "research task not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load research task", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to load research task")
		return
	}

	page := render.ReportPage{
		Title:        utils.Truncate(task.Query, 80),
		Status:       string(task.Status),
		ResearchType: string(task.ResearchType),
		Model:        task.Model,
		Date:         utils.FormatDate(task.CreatedAt),
		Error:        task.ErrorMessage,
	}

	markdown := task.Progress
	if task.Status == models.TaskStatusCompleted {
		result, err := h.research.Result(ctx, task.TaskID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		markdown = result.Document
		if result.Metrics != nil {
			page.Citations = result.Metrics.TotalCitations
			page.WordCount = result.Metrics.TotalWords
		}
	}

	body, err := render.Markdown(markdown)
	if err != nil {
		h.logger.Error("failed to render research report", zap.String("task_id", task.TaskID), zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render report")
		return
	}
	page.Body = body

	c.HTML(http.StatusOK, render.ReportTemplateName, page)
}

// HealthHandler handles GET /health
func (h *Handlers) HealthHandler(c *gin.Context) {
	resp := gin.H{
		"status":             "ok",
		"backend_configured": h.backendConfigured,
		"active_tasks":       h.research.Registry().ActiveCount(),
	}
	ctx := c.Request.Context()
	if err := h.research.Ping(ctx); err != nil {
		resp["status"] = "degraded"
		h.logger.Warn("health check could not reach the store", zap.Error(err))
		c.JSON(http.StatusOK, resp)
		return
	}
	if overview, err := h.research.Overview(ctx); err == nil {
		resp["completed_results"] = overview.CompletedIdeas
	} else {
		h.logger.Warn("health check could not count results", zap.Error(err))
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps service errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var requestErr *validation.RequestError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &requestErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, services.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "task has not finished yet"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}
