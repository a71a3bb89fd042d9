// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/ternarybob/indago/internal/services/pdf"
	"github.com/ternarybob/indago/internal/services/summarizer"
)

// ResearchHandler exposes the research job API: submit, poll, fetch
// results and list.
type ResearchHandler struct {
	research interfaces.ResearchService
	storage  interfaces.JobStorage
	pdf      *pdf.Service
	logger   arbor.ILogger
}

func NewResearchHandler(research interfaces.ResearchService, storage interfaces.JobStorage, pdfService *pdf.Service, logger arbor.ILogger) *ResearchHandler {
	return &ResearchHandler{
		research: research,
		storage:  storage,
		pdf:      pdfService,
		logger:   logger,
	}
}

// SubmitHandler accepts a research request and returns the job ID for
// polling. POST /api/research
func (h *ResearchHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req interfaces.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.research.Submit(r.Context(), req)
	if err != nil {
		if strings.Contains(err.Error(), "invalid research request") {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to submit research job")
		WriteError(w, http.StatusInternalServerError, "failed to submit research job")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(models.JobStatusPending),
	})
}

// StatusHandler returns the polling view of a job.
// GET /api/research/{id}/status
func (h *ResearchHandler) StatusHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	progress, err := h.research.Status(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("job not found: %s", jobID))
		return
	}

	WriteJSON(w, http.StatusOK, progress)
}

// ResultHandler returns the finished report in the requested format.
// GET /api/research/{id}/result?format=html|json|markdown|pdf
func (h *ResearchHandler) ResultHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	job, err := h.research.Get(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("job not found: %s", jobID))
		return
	}

	if job.Status == models.JobStatusFailed {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
			"error":  job.Error,
		})
		return
	}

	if job.Status != models.JobStatusCompleted {
		WriteJSON(w, http.StatusConflict, map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
			"ready":  false,
		})
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}

	switch format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(job.Document))

	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(h.markdownFor(job)))

	case "pdf":
		data, err := h.pdf.ConvertMarkdownToPDF(h.markdownFor(job), job.Topic)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", job.ID).Msg("PDF conversion failed")
			WriteError(w, http.StatusInternalServerError, "failed to generate PDF")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".pdf"))
		w.WriteHeader(http.StatusOK)
		w.Write(data)

	case "json":
		WriteJSON(w, http.StatusOK, job)

	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format: %s", format))
	}
}

// markdownFor returns the stored markdown rendition, generating one on
// the fly for jobs that did not request it at submission.
func (h *ResearchHandler) markdownFor(job *models.ResearchJob) string {
	if job.Markdown != "" {
		return job.Markdown
	}
	analysis := models.AnalysisResult{}
	if job.Analysis != nil {
		analysis = *job.Analysis
	}
	return summarizer.RenderMarkdown(job.Topic, job.Rounds, analysis, job.Screenshots)
}

// GetHandler returns the full job record.
// GET /api/research/{id}
func (h *ResearchHandler) GetHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.research.Get(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("job not found: %s", jobID))
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// DeleteHandler removes a job record.
// DELETE /api/research/{id}
func (h *ResearchHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.storage.Delete(r.Context(), jobID); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": "deleted",
	})
}

// ListHandler returns jobs, newest first, with optional status filter
// and pagination. GET /api/research?status=&limit=&offset=
func (h *ResearchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	opts := interfaces.JobListOptions{
		Limit:  GetIntParam(r, "limit", 20),
		Offset: GetIntParam(r, "offset", 0),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = status
	}

	jobs, err := h.research.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	summaries := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, map[string]interface{}{
			"job_id":           job.ID,
			"topic":            job.Topic,
			"status":           job.Status,
			"rounds_completed": job.RoundsCompleted(),
			"created_at":       job.CreatedAt,
			"updated_at":       job.UpdatedAt,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  summaries,
		"count": len(summaries),
	})
}
