package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"nexus-support-service/internal/config"
	"nexus-support-service/internal/service/document"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.Storage.Provider = "local"
	cfg.Storage.LocalDir = t.TempDir()
	cfg.STT.Provider = "mock"
	cfg.STT.PollInterval = 0
	cfg.Meeting.Provider = "mock"
	cfg.Kafka.Enabled = false
	cfg.Database.DSN = ""
	cfg.Redis.Addr = ""
	cfg.Observability.OTLPEndpoint = ""
	cfg.Documents.Seed = true
	cfg.HTTP.Port = "0"
	cfg.Observability.GRPCPort = "0"
	cfg.Observability.MetricsAddr = "127.0.0.1:0"
	return cfg
}

func TestNew_InMemory(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	if a.Transcription.Provider() != "mock" {
		t.Errorf("expected mock stt provider, got %s", a.Transcription.Provider())
	}
	docs, err := a.Documents.List(ctx, document.ListRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != len(document.SampleDocuments) {
		t.Errorf("expected %d seeded documents, got %d", len(document.SampleDocuments), len(docs))
	}
	if err := a.Ready(ctx); err != nil {
		t.Errorf("expected ready, got %v", err)
	}
}

func TestNew_RedisAndDatabase(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.Database.DSN = "file::memory:"

	a, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	job, err := a.Transcription.Submit(ctx, "call.wav", strings.NewReader("RIFF"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists(cfg.Redis.KeyPrefix + ":jobs:" + job.ID) {
		t.Error("expected job stored in redis")
	}

	res, err := a.Meetings.CreateMeeting(ctx, "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists(cfg.Redis.KeyPrefix + ":meetings:" + res.MeetingID) {
		t.Error("expected meeting stored in redis")
	}

	n, err := a.Documents.Seed(ctx)
	if err != nil || n != 0 {
		t.Errorf("expected no reseed, got %d, %v", n, err)
	}
	if err := a.Ready(ctx); err != nil {
		t.Errorf("expected ready, got %v", err)
	}

	mr.Close()
	if err := a.Ready(ctx); err == nil {
		t.Error("expected not ready once redis is gone")
	}
}

func TestNew_InvalidProviders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"storage", func(c *config.Config) { c.Storage.Provider = "ftp" }},
		{"stt", func(c *config.Config) { c.STT.Provider = "whisper" }},
		{"aws stt without s3", func(c *config.Config) { c.STT.Provider = "aws" }},
		{"meeting", func(c *config.Config) { c.Meeting.Provider = "zoom" }},
		{"redis unreachable", func(c *config.Config) { c.Redis.Addr = "127.0.0.1:1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if _, err := New(context.Background(), cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_PortInUse(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	tests := []struct {
		name string
		set  func(cfg *config.Config, port string)
		want string
	}{
		{"grpc", func(cfg *config.Config, port string) { cfg.Observability.GRPCPort = port }, "grpc listen"},
		{"http", func(cfg *config.Config, port string) { cfg.HTTP.Port = port }, "http listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.set(cfg, strconv.Itoa(port))
			a, err := New(context.Background(), cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			done := make(chan error, 1)
			go func() { done <- a.Run(context.Background()) }()

			select {
			case err := <-done:
				if err == nil || !strings.Contains(err.Error(), tt.want) {
					t.Errorf("expected %q error, got %v", tt.want, err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Run did not fail on a busy port")
			}
			if a.closers != nil {
				t.Errorf("expected resources released, %d closers left", len(a.closers))
			}
		})
	}
}

func TestRun_WaitsForPoller(t *testing.T) {
	cfg := testConfig(t)
	cfg.STT.PollInterval = 5 * time.Millisecond
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if a.closers != nil {
		t.Errorf("expected resources released, %d closers left", len(a.closers))
	}
}
