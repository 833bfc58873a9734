package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"imageUpscaler/api/dto"
	"imageUpscaler/api/models"
	"imageUpscaler/api/repository"
	"imageUpscaler/api/results"
	"imageUpscaler/api/service"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type mockJobService struct {
	submitFunc func(ctx context.Context, traceID, filename string, payload []byte) (*models.Job, error)
	statusFunc func(ctx context.Context, jobID string) (*dto.StatusResponse, error)
	fetchFunc  func(ctx context.Context, jobID string) (*results.Result, error)
}

func (m *mockJobService) Submit(ctx context.Context, traceID, filename string, payload []byte) (*models.Job, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, traceID, filename, payload)
	}
	return &models.Job{
		ID:               uuid.New().String(),
		TraceID:          traceID,
		OriginalFilename: filename,
		State:            models.StatePending,
	}, nil
}

func (m *mockJobService) Status(ctx context.Context, jobID string) (*dto.StatusResponse, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, jobID)
	}
	return &dto.StatusResponse{JobID: jobID, State: string(models.StatePending)}, nil
}

func (m *mockJobService) Fetch(ctx context.Context, jobID string) (*results.Result, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, jobID)
	}
	return &results.Result{Filename: "upscaled.png", ContentType: "image/png", Data: pngHeader}, nil
}

func defaultAllowedExts() map[string]bool {
	return map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true}
}

func newHandler(t *testing.T, svc JobService) *JobHandler {
	t.Helper()
	return NewJobHandler(svc, 16*1024*1024, defaultAllowedExts(), zaptest.NewLogger(t))
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	writer.Close()

	return body, writer.FormDataContentType()
}

func TestJobHandler_Upload_Accepted(t *testing.T) {
	handler := newHandler(t, &mockJobService{})

	content := make([]byte, 1024)
	copy(content, pngHeader)
	body, contentType := multipartBody(t, "test.png", content)

	req := httptest.NewRequest("POST", "/upscale", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Error("Expected job_id in response")
	}
	if resp.StatusURL != "/jobs/"+resp.JobID {
		t.Errorf("Unexpected status_url: %s", resp.StatusURL)
	}
	if resp.ResultURL != "/jobs/"+resp.JobID+"/result" {
		t.Errorf("Unexpected result_url: %s", resp.ResultURL)
	}
}

func TestJobHandler_Upload_DisallowedExtension(t *testing.T) {
	submitted := false
	handler := newHandler(t, &mockJobService{
		submitFunc: func(ctx context.Context, traceID, filename string, payload []byte) (*models.Job, error) {
			submitted = true
			return nil, nil
		},
	})

	content := make([]byte, 64)
	copy(content, pngHeader)
	body, contentType := multipartBody(t, "payload.exe", content)

	req := httptest.NewRequest("POST", "/upscale", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}
	if submitted {
		t.Error("Disallowed extension must never reach the service")
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Code != dto.CodeValidation {
		t.Errorf("Expected code %s, got %s", dto.CodeValidation, resp.Code)
	}
}

func TestJobHandler_Upload_EmptyFile(t *testing.T) {
	submitted := false
	handler := newHandler(t, &mockJobService{
		submitFunc: func(ctx context.Context, traceID, filename string, payload []byte) (*models.Job, error) {
			submitted = true
			return nil, nil
		},
	})

	body, contentType := multipartBody(t, "test.png", nil)

	req := httptest.NewRequest("POST", "/upscale", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}
	if submitted {
		t.Error("Empty payload must never reach the service")
	}
}

func TestJobHandler_Upload_QueueUnavailable(t *testing.T) {
	handler := newHandler(t, &mockJobService{
		submitFunc: func(ctx context.Context, traceID, filename string, payload []byte) (*models.Job, error) {
			return nil, service.ErrQueueUnavailable
		},
	})

	content := make([]byte, 64)
	copy(content, pngHeader)
	body, contentType := multipartBody(t, "test.png", content)

	req := httptest.NewRequest("POST", "/upscale", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Code != dto.CodeQueueUnavailable {
		t.Errorf("Expected code %s, got %s", dto.CodeQueueUnavailable, resp.Code)
	}
}

func TestJobHandler_Status_Success(t *testing.T) {
	jobID := uuid.New().String()
	handler := newHandler(t, &mockJobService{
		statusFunc: func(ctx context.Context, id string) (*dto.StatusResponse, error) {
			return &dto.StatusResponse{JobID: id, State: string(models.StateRunning), Progress: 50}, nil
		},
	})

	req := httptest.NewRequest("GET", "/jobs/"+jobID, nil)
	rec := httptest.NewRecorder()

	handler.Jobs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp dto.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.State != string(models.StateRunning) || resp.Progress != 50 {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestJobHandler_Status_NotFound(t *testing.T) {
	handler := newHandler(t, &mockJobService{
		statusFunc: func(ctx context.Context, id string) (*dto.StatusResponse, error) {
			return nil, repository.ErrJobNotFound
		},
	})

	req := httptest.NewRequest("GET", "/jobs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	handler.Jobs(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
}

func TestJobHandler_Status_EmptyJobID(t *testing.T) {
	handler := newHandler(t, &mockJobService{})

	req := httptest.NewRequest("GET", "/jobs/", nil)
	rec := httptest.NewRecorder()

	handler.Jobs(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}
}

func TestJobHandler_Result_Success(t *testing.T) {
	handler := newHandler(t, &mockJobService{})

	req := httptest.NewRequest("GET", "/jobs/"+uuid.New().String()+"/result", nil)
	rec := httptest.NewRecorder()

	handler.Jobs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd == "" {
		t.Error("Expected Content-Disposition header")
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), pngHeader) {
		t.Error("Expected PNG bytes in body")
	}
}

func TestJobHandler_Result_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", repository.ErrJobNotFound, http.StatusNotFound, dto.CodeNotFound},
		{"not ready", service.ErrNotReady, http.StatusConflict, dto.CodeNotReady},
		{"expired", service.ErrResultExpired, http.StatusGone, dto.CodeExpired},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			handler := newHandler(t, &mockJobService{
				fetchFunc: func(ctx context.Context, jobID string) (*results.Result, error) {
					return nil, c.err
				},
			})

			req := httptest.NewRequest("GET", "/jobs/"+uuid.New().String()+"/result", nil)
			rec := httptest.NewRecorder()

			handler.Jobs(rec, req)

			if rec.Code != c.wantStatus {
				t.Fatalf("Expected status %d, got %d", c.wantStatus, rec.Code)
			}

			var resp dto.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Code != c.wantCode {
				t.Errorf("Expected code %s, got %s", c.wantCode, resp.Code)
			}
		})
	}
}
