package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, "text is required")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"error":"text is required"}` {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Text string `json:"text"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi","extra":1}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected error for unknown field")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Text != "hi" {
		t.Fatalf("unexpected decode result %q, %v", dst.Text, err)
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)

	if err := SendSSEEvent(rec, rec, "state.changed", map[string]bool{"isSending": true}); err != nil {
		t.Fatalf("SendSSEEvent returned error: %v", err)
	}

	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("missing sse content type")
	}
	want := "event: state.changed\ndata: {\"isSending\":true}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected sse frame %q", rec.Body.String())
	}
	if !rec.Flushed {
		t.Fatalf("expected flush")
	}
}
