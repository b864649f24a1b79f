package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
	"github.com/ternarybob/takeoff/internal/services/export"
)

// maxUploadBytes caps blueprint uploads at 100MB
const maxUploadBytes = 100 << 20

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// JobDispatcher enqueues a stored job for pipeline processing
type JobDispatcher interface {
	Submit(jobID string) error
}

// BlueprintHandler handles blueprint upload, result polling, and export
type BlueprintHandler struct {
	config     *common.Config
	storage    interfaces.JobStorage
	dispatcher JobDispatcher
	exporter   *export.Service
	logger     arbor.ILogger
}

// NewBlueprintHandler creates a new BlueprintHandler
func NewBlueprintHandler(config *common.Config, storage interfaces.JobStorage, dispatcher JobDispatcher, exporter *export.Service, logger arbor.ILogger) *BlueprintHandler {
	return &BlueprintHandler{
		config:     config,
		storage:    storage,
		dispatcher: dispatcher,
		exporter:   exporter,
		logger:     logger,
	}
}

// UploadHandler handles POST /api/blueprints/upload
func (h *BlueprintHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing 'file' form field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type '%s' (expected .pdf, .png, .jpg, or .jpeg)", ext))
		return
	}

	jobID := common.NewJobID()
	sourcePath, err := h.saveUpload(file, jobID, ext)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to store uploaded blueprint")
		WriteError(w, http.StatusInternalServerError, "failed to store uploaded file")
		return
	}

	job := models.NewJob(jobID, header.Filename, sourcePath)
	if err := h.storage.SaveJob(r.Context(), job); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to persist job")
		WriteError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if err := h.dispatcher.Submit(jobID); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Job submission rejected")
		if updateErr := h.storage.UpdateJobStatus(r.Context(), jobID, models.JobStatusFailed, fmt.Sprintf("submission rejected: %v", err)); updateErr != nil {
			h.logger.Error().Err(updateErr).Str("job_id", jobID).Msg("Failed to fail rejected job")
		}
		WriteError(w, http.StatusServiceUnavailable, "server is at capacity, try again later")
		return
	}

	h.logger.Info().
		Str("job_id", jobID).
		Str("filename", header.Filename).
		Int64("size", header.Size).
		Msg("Blueprint uploaded")

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":            jobID,
		"status":            "uploaded",
		"original_filename": header.Filename,
		"message":           "blueprint queued for takeoff",
	})
}

// ResultHandler handles GET /api/blueprints/result?job_id=...
func (h *BlueprintHandler) ResultHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "missing 'job_id' query parameter")
		return
	}

	job, err := h.storage.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, common.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("job '%s' not found", jobID))
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	switch job.Status {
	case models.JobStatusComplete:
		summary, err := h.storage.GetSummary(r.Context(), jobID)
		if err != nil {
			// Complete without a stored result is a consistency fault
			h.logger.Error().
				Err(common.ErrResultMissing).
				Str("job_id", jobID).
				Msg("Complete job has no stored result")
			WriteError(w, http.StatusInternalServerError, "result missing for completed job")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"job_id": jobID,
			"status": job.Status,
			"result": summary,
		})

	case models.JobStatusFailed:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"job_id": jobID,
			"status": job.Status,
			"error":  job.Error,
		})

	default:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"job_id":  jobID,
			"status":  job.Status,
			"message": job.Message,
		})
	}
}

// ExportHandler handles GET /api/blueprints/export?job_id=...
func (h *BlueprintHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "missing 'job_id' query parameter")
		return
	}

	job, err := h.storage.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, common.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("job '%s' not found", jobID))
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	if job.Status != models.JobStatusComplete {
		WriteError(w, http.StatusConflict, fmt.Sprintf("job is %s, export requires a complete job", job.Status))
		return
	}

	summary, err := h.storage.GetSummary(r.Context(), jobID)
	if err != nil {
		h.logger.Error().
			Err(common.ErrResultMissing).
			Str("job_id", jobID).
			Msg("Complete job has no stored result")
		WriteError(w, http.StatusInternalServerError, "result missing for completed job")
		return
	}

	workbook, err := h.exporter.SummaryWorkbook(jobID, summary)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Workbook export failed")
		WriteError(w, http.StatusInternalServerError, "failed to generate workbook")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"takeoff_%s.xlsx\"", jobID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(workbook); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to write workbook response")
	}
}

// saveUpload streams the uploaded file into the uploads directory
func (h *BlueprintHandler) saveUpload(file io.Reader, jobID, ext string) (string, error) {
	uploadsDir := h.config.Storage.Filesystem.Uploads
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	destPath := filepath.Join(uploadsDir, jobID+ext)
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return destPath, nil
}
