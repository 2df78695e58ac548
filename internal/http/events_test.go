package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/events"
	"nexus-support-service/internal/models"
	"nexus-support-service/internal/repository/memory"
	"nexus-support-service/internal/service/stt/mock"
	"nexus-support-service/internal/service/transcription"
	"nexus-support-service/internal/storage/local"
)

func setupEventsServer(t *testing.T) (*httptest.Server, *events.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	hub := events.NewHub(AllowOrigin(nil))
	svc := Services{
		Transcription: transcription.NewService(mock.New(), store, memory.New[transcription.Job](), hub,
			transcription.Config{}),
		Events: hub,
	}
	srv := httptest.NewServer(NewRouter(Config{}, svc))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, hub
}

func TestTranscriptionEvents_StreamsSubmit(t *testing.T) {
	srv, hub := setupEventsServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/transcribe/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	body, contentType := multipartFile(t, "file", "call.wav", []byte("RIFF....WAVE"))
	resp, err := http.Post(srv.URL+"/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg events.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Kind != "status" {
		t.Errorf("expected status frame, got %s", msg.Kind)
	}
	var event models.TranscriptionStatusEvent
	if err := json.Unmarshal(msg.Event, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.JobID == "" || event.JobID != msg.Key {
		t.Errorf("expected event keyed by job id, got key %q job %q", msg.Key, event.JobID)
	}
}

func TestTranscriptionEvents_UnknownJob(t *testing.T) {
	srv, _ := setupEventsServer(t)

	resp, err := http.Get(srv.URL + "/transcribe/ws/transcribe_missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body apperrors.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != apperrors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestTranscriptionEvents_NotRegisteredWithoutHub(t *testing.T) {
	engine := setupTestServer(t)
	rec := doJSON(engine, http.MethodGet, "/transcribe/ws", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a hub, got %d", rec.Code)
	}
}

func TestAllowOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"no origin header", nil, "", true},
		{"listed", []string{"http://localhost:3000"}, "http://localhost:3000", true},
		{"unlisted", []string{"http://localhost:3000"}, "http://evil.test", false},
		{"wildcard", []string{"*"}, "http://any.test", true},
		{"none configured", nil, "http://localhost:3000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/transcribe/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := AllowOrigin(tt.origins)(req); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
