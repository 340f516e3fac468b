package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quranreels/config"
	"quranreels/models"
	"quranreels/services"
	"quranreels/utils"
)

const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusCancelled  = "cancelled"
	statusFailed     = "failed"

	maxConcurrency = 16
)

// SeriesHandler handles timeline and series requests
type SeriesHandler struct {
	cfg       *config.Config
	providers *services.Providers
	builder   *services.TimelineBuilder
	subtitles *services.SubtitleService
	log       *utils.Logger

	// In-memory job tracking
	jobs    map[string]*models.JobStatus
	cancels map[string]context.CancelFunc
	jobsMux sync.RWMutex
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(cfg *config.Config, providers *services.Providers, log *utils.Logger) *SeriesHandler {
	return &SeriesHandler{
		cfg:       cfg,
		providers: providers,
		builder:   services.NewTimelineBuilder(),
		subtitles: services.NewSubtitleService(),
		log:       log,
		jobs:      make(map[string]*models.JobStatus),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Register mounts the API routes on r
func (h *SeriesHandler) Register(r gin.IRoutes) {
	r.POST("/timeline", h.Timeline)
	r.POST("/series", h.CreateSeries)
	r.DELETE("/series/:job_id", h.CancelSeries)
	r.GET("/status/:job_id", h.GetStatus)
	r.GET("/timeline/:job_id/:ref", h.GetTimeline)
	r.GET("/subtitles/:job_id/:ref", h.GetSubtitles)
}

// Timeline handles POST /api/timeline: builds one timeline from supplied text and duration
func (h *SeriesHandler) Timeline(c *gin.Context) {
	var req models.TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ref, err := models.ParseRef(req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	tl, err := h.builder.BuildUnit(ref, req.Text, req.Translation, req.AudioDurationMs, h.cfg.Timing)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tl)
}

// CreateSeries handles POST /api/series
func (h *SeriesHandler) CreateSeries(c *gin.Context) {
	var req models.SeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	start, err := models.ParseRef(req.Start)
	if err != nil {
		respondError(c, err)
		return
	}
	end := start
	if req.End != "" {
		if end, err = models.ParseRef(req.End); err != nil {
			respondError(c, err)
			return
		}
	}

	// Set defaults if not provided
	if req.Language == "" {
		req.Language = h.cfg.DefaultLanguage
	}
	if req.Qari == "" {
		req.Qari = h.cfg.DefaultQari
	}
	if req.Concurrency == 0 {
		req.Concurrency = h.cfg.SeriesConcurrency
	}
	if req.Concurrency < 1 || req.Concurrency > maxConcurrency {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Concurrency must be between 1 and %d", maxConcurrency)})
		return
	}

	refs, err := services.EnumerateRefs(start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	jobID := uuid.New().String()
	log := h.log.With("job_id", jobID)

	dir, err := utils.CreateTempDir(h.cfg.TempDir, jobID)
	if err != nil {
		log.Error("failed to create job directory", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare job"})
		return
	}

	orchestrator, err := h.providers.Orchestrator(req.Qari, dir, h.cfg.Timing,
		services.SeriesOptions{Language: req.Language, Concurrency: req.Concurrency}, log)
	if err != nil {
		_ = utils.CleanupJobFiles(h.cfg.TempDir, jobID)
		respondError(c, err)
		return
	}

	job := &models.JobStatus{
		JobID:     jobID,
		Status:    statusProcessing,
		Qari:      req.Qari,
		Language:  req.Language,
		Total:     len(refs),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())

	h.jobsMux.Lock()
	h.jobs[jobID] = job
	h.cancels[jobID] = cancel
	h.jobsMux.Unlock()

	// Start background processing
	go h.processSeries(ctx, jobID, orchestrator, start, end, log)

	c.JSON(http.StatusAccepted, models.SeriesResponse{
		JobID:  jobID,
		Status: statusProcessing,
	})
}

// CancelSeries handles DELETE /api/series/:job_id. Units already running finish.
func (h *SeriesHandler) CancelSeries(c *gin.Context) {
	jobID := c.Param("job_id")

	h.jobsMux.RLock()
	job, exists := h.jobs[jobID]
	cancel := h.cancels[jobID]
	status := ""
	if exists {
		status = job.Status
	}
	h.jobsMux.RUnlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if cancel == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Job already finished", "status": status})
		return
	}

	cancel()
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "cancelling"})
}

// GetStatus handles GET /api/status/:job_id
func (h *SeriesHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	h.jobsMux.RLock()
	job, exists := h.jobs[jobID]
	var snapshot models.JobStatus
	var results []models.UnitResult
	if exists {
		snapshot = *job
		results = append(results, job.Results...)
	}
	h.jobsMux.RUnlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	// Build response
	resp := models.StatusResponse{
		Status:    snapshot.Status,
		Qari:      snapshot.Qari,
		Language:  snapshot.Language,
		Total:     snapshot.Total,
		Completed: len(results),
		Units:     make([]models.UnitStatus, 0, len(results)),
		Summary:   services.Summarize(results),
	}
	if snapshot.Total > 0 {
		resp.Progress = len(results) * 100 / snapshot.Total
	}

	for _, r := range results {
		unit := models.UnitStatus{Ref: r.Ref.String(), OK: r.OK()}
		if r.OK() {
			unit.Segments = len(r.Timeline.Segments)
			unit.DurationMs = r.Timeline.TotalDurationMs
		} else {
			unit.ErrorKind = models.ErrorKind(r.Err)
			unit.Error = r.Err.Error()
		}
		resp.Units = append(resp.Units, unit)
	}

	if snapshot.Error != nil {
		errMsg := snapshot.Error.Error()
		resp.Error = &errMsg
	}

	c.JSON(http.StatusOK, resp)
}

// GetTimeline handles GET /api/timeline/:job_id/:ref
func (h *SeriesHandler) GetTimeline(c *gin.Context) {
	tl, ok := h.lookupTimeline(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tl)
}

// GetSubtitles handles GET /api/subtitles/:job_id/:ref
func (h *SeriesHandler) GetSubtitles(c *gin.Context) {
	tl, ok := h.lookupTimeline(c)
	if !ok {
		return
	}

	srt, err := h.subtitles.SRT(tl)
	if err != nil {
		h.log.Error("failed to render subtitles", "ref", tl.Ref.String(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render subtitles"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=quran_%d_%d.srt", tl.Ref.Major, tl.Ref.MinorStart))
	c.Data(http.StatusOK, "application/x-subrip; charset=utf-8", []byte(srt))
}

// lookupTimeline finds the finished timeline of one unit of a job, writing
// the error response itself when there is none.
func (h *SeriesHandler) lookupTimeline(c *gin.Context) (*models.Timeline, bool) {
	jobID := c.Param("job_id")

	ref, err := models.ParseRef(c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	h.jobsMux.RLock()
	job, exists := h.jobs[jobID]
	var result *models.UnitResult
	if exists {
		for i := range job.Results {
			if job.Results[i].Ref == ref {
				r := job.Results[i]
				result = &r
				break
			}
		}
	}
	h.jobsMux.RUnlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return nil, false
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Unit %s not processed", ref)})
		return nil, false
	}
	if !result.OK() {
		respondError(c, result.Err)
		return nil, false
	}
	return result.Timeline, true
}

// processSeries runs a series in background, recording each unit as it completes
func (h *SeriesHandler) processSeries(ctx context.Context, jobID string, o *services.SeriesOrchestrator, start, end models.ContentUnitRef, log *utils.Logger) {
	defer utils.ScheduleCleanup(h.cfg.TempDir, jobID, 1*time.Hour)

	log.Info("series started", "start", start.String(), "end", end.String())

	seq, err := o.Series(ctx, start, end)
	if err != nil {
		h.finishJob(jobID, statusFailed, err)
		log.Error("series failed", "error", err)
		return
	}

	for ref, res := range seq {
		h.jobsMux.Lock()
		if job, exists := h.jobs[jobID]; exists {
			job.Results = append(job.Results, res)
			job.UpdatedAt = time.Now()
		}
		h.jobsMux.Unlock()
		log.Debug("unit recorded", "ref", ref.String(), "ok", res.OK())
	}

	status := statusCompleted
	if ctx.Err() != nil {
		status = statusCancelled
	}
	h.finishJob(jobID, status, nil)

	h.jobsMux.RLock()
	summary := services.Summarize(h.jobs[jobID].Results)
	h.jobsMux.RUnlock()
	log.Info("series finished", "status", status, "succeeded", summary.Succeeded, "failed", summary.Failed)
}

func (h *SeriesHandler) finishJob(jobID, status string, err error) {
	h.jobsMux.Lock()
	defer h.jobsMux.Unlock()

	if job, exists := h.jobs[jobID]; exists {
		job.Status = status
		job.Error = err
		job.UpdatedAt = time.Now()
	}
	if cancel, ok := h.cancels[jobID]; ok {
		cancel()
		delete(h.cancels, jobID)
	}
}

// respondError maps an error kind to an HTTP status
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidReference),
		errors.Is(err, models.ErrEmptyText),
		errors.Is(err, models.ErrInvalidDuration),
		errors.Is(err, models.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInfeasibleAllocation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTranslationNotFound),
		errors.Is(err, models.ErrPrimaryTextUnavailable),
		errors.Is(err, models.ErrAudioDurationUnavailable):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": err.Error(), "kind": models.ErrorKind(err)})
}
