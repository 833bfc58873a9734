package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func traceProbe(captured *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetTraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestTraceID_PropagatesValidHeader(t *testing.T) {
	incoming := uuid.New().String()

	var seen string
	handler := TraceID(traceProbe(&seen))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Trace-ID", incoming)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if seen != incoming {
		t.Errorf("Context trace id = %q, want %q", seen, incoming)
	}
	if got := rec.Header().Get("X-Trace-ID"); got != incoming {
		t.Errorf("Response trace id = %q, want %q", got, incoming)
	}
}

func TestTraceID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	handler := TraceID(traceProbe(&seen))

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("Expected generated UUID trace id, got %q", seen)
	}
	if got := rec.Header().Get("X-Trace-ID"); got != seen {
		t.Errorf("Response trace id %q does not match context %q", got, seen)
	}
}

func TestTraceID_ReplacesMalformedHeader(t *testing.T) {
	var seen string
	handler := TraceID(traceProbe(&seen))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Trace-ID", "not-a-uuid\n\"injection\"")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("Expected replacement UUID trace id, got %q", seen)
	}
	if seen == "not-a-uuid\n\"injection\"" {
		t.Error("Malformed trace id must not be echoed")
	}
}

func TestGetTraceID_EmptyContext(t *testing.T) {
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("Expected empty trace id, got %q", got)
	}
}
