package kafka

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestDescriptorSizeLimit_CoversMaxSizePayload(t *testing.T) {
	// The largest valid upload must still produce a sendable descriptor
	// after JSON base64 inflation.
	const maxUpload = 16 * 1024 * 1024

	msg := &JobMessage{
		JobID:    uuid.New().String(),
		TraceID:  uuid.New().String(),
		Filename: strings.Repeat("a", 255) + ".png",
		Payload:  bytes.Repeat([]byte{0xFF}, maxUpload),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal descriptor: %v", err)
	}

	limit := DescriptorSizeLimit(maxUpload)
	if len(data) > limit {
		t.Errorf("Encoded descriptor is %d bytes, exceeds limit %d", len(data), limit)
	}

	// The raw cap alone is not enough; the limit must sit above the
	// base64-inflated payload.
	if limit < maxUpload*4/3 {
		t.Errorf("Limit %d does not cover base64 inflation of %d-byte payload", limit, maxUpload)
	}
}

func TestDescriptorSizeLimit_SmallPayload(t *testing.T) {
	msg := &JobMessage{
		JobID:    uuid.New().String(),
		TraceID:  uuid.New().String(),
		Filename: "photo.png",
		Payload:  []byte{0x89, 0x50, 0x4E, 0x47},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal descriptor: %v", err)
	}

	if limit := DescriptorSizeLimit(int64(len(msg.Payload))); len(data) > limit {
		t.Errorf("Encoded descriptor is %d bytes, exceeds limit %d", len(data), limit)
	}
}
