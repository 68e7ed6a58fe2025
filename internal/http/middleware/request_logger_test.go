package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

func TestRequestLoggerRecordsStatusAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info", "json")
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/booking/submit", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req = req.WithContext(identity.WithState(req.Context(), identity.State{User: &identity.User{ID: "u1"}}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q", buf.String())
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Fatalf("expected status 201, got %v", entry["status"])
	}
	if entry["request_id"] != "req-1" || entry["user_id"] != "u1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
