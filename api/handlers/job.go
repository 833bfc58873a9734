package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"imageUpscaler/api/dto"
	"imageUpscaler/api/middleware"
	"imageUpscaler/api/models"
	"imageUpscaler/api/repository"
	"imageUpscaler/api/results"
	"imageUpscaler/api/service"
	"imageUpscaler/api/validation"
)

// JobService is what the handler needs from the service layer.
type JobService interface {
	Submit(ctx context.Context, traceID, filename string, payload []byte) (*models.Job, error)
	Status(ctx context.Context, jobID string) (*dto.StatusResponse, error)
	Fetch(ctx context.Context, jobID string) (*results.Result, error)
}

type JobHandler struct {
	service       JobService
	maxUploadSize int64
	allowedExts   map[string]bool
	logger        *zap.Logger
}

func NewJobHandler(service JobService, maxUploadSize int64, allowedExts map[string]bool, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
		allowedExts:   allowedExts,
		logger:        logger,
	}
}

// Index describes the service, mirroring what callers see in the README.
func (h *JobHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Image Upscaler API",
		"endpoints": map[string]string{
			"POST /upscale":         "Upload image for 2x upscaling",
			"GET /jobs/{id}":        "Check job status",
			"GET /jobs/{id}/result": "Download upscaled image",
		},
	})
}

func (h *JobHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	// Reject oversized bodies before buffering the whole upload. The slack
	// covers multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(64<<10))

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.handleError(w, "Failed to parse form", dto.CodeValidation, err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, "No file provided", dto.CodeValidation, err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	// The payload stays in memory end to end; nothing is written to disk.
	data, err := io.ReadAll(file)
	if err != nil {
		h.handleError(w, "Failed to read file", dto.CodeInternal, err, traceID, http.StatusInternalServerError)
		return
	}

	if err := validation.CheckUpload(data, header.Filename, h.maxUploadSize, h.allowedExts); err != nil {
		h.handleError(w, err.Error(), dto.CodeValidation, err, traceID, http.StatusBadRequest)
		return
	}

	job, err := h.service.Submit(r.Context(), traceID, header.Filename, data)
	if err != nil {
		if errors.Is(err, service.ErrQueueUnavailable) {
			h.handleError(w, "Queue unavailable", dto.CodeQueueUnavailable, err, traceID, http.StatusServiceUnavailable)
			return
		}
		h.handleError(w, "Failed to create job", dto.CodeInternal, err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Job submitted",
		zap.String("trace_id", traceID),
		zap.String("job_id", job.ID),
		zap.String("filename", header.Filename),
		zap.Int("size", len(data)),
	)

	h.respondJSON(w, http.StatusAccepted, dto.SubmitResponse{
		JobID:     job.ID,
		State:     string(job.State),
		StatusURL: fmt.Sprintf("/jobs/%s", job.ID),
		ResultURL: fmt.Sprintf("/jobs/%s/result", job.ID),
	})
}

// Jobs dispatches /jobs/{id} and /jobs/{id}/result.
func (h *JobHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if rest == "" {
		h.handleError(w, "Job ID is required", dto.CodeValidation, nil, traceID, http.StatusBadRequest)
		return
	}

	if jobID, ok := strings.CutSuffix(rest, "/result"); ok {
		h.result(w, r, jobID, traceID)
		return
	}

	h.status(w, r, rest, traceID)
}

func (h *JobHandler) status(w http.ResponseWriter, r *http.Request, jobID, traceID string) {
	resp, err := h.service.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			h.handleError(w, "Job not found", dto.CodeNotFound, err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get job status", dto.CodeInternal, err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *JobHandler) result(w http.ResponseWriter, r *http.Request, jobID, traceID string) {
	res, err := h.service.Fetch(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrJobNotFound):
			h.handleError(w, "Result not found", dto.CodeNotFound, err, traceID, http.StatusNotFound)
		case errors.Is(err, service.ErrNotReady):
			h.handleError(w, "Job is still processing", dto.CodeNotReady, err, traceID, http.StatusConflict)
		case errors.Is(err, service.ErrResultExpired):
			h.handleError(w, "Result has expired", dto.CodeExpired, err, traceID, http.StatusGone)
		default:
			h.handleError(w, "Failed to fetch result", dto.CodeInternal, err, traceID, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

func (h *JobHandler) handleError(w http.ResponseWriter, message, code string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Code:    code,
		TraceID: traceID,
	})
}

func (h *JobHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
