package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"astra-backend/internal/models"
)

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestRespondJSONUnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()

	// Channels cannot be JSON-encoded; the committed status must stand
	// and the failure must not panic.
	RespondJSON(rec, http.StatusOK, make(chan int))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when encoding fails", rec.Code)
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusForbidden, "not allowed")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var resp models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Error != "not allowed" {
		t.Errorf("error = %q, want %q", resp.Error, "not allowed")
	}
}
