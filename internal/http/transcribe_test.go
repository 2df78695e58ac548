package http

import (
	"net/http"
	"strings"
	"testing"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/models"
)

func TestTranscribe_Health(t *testing.T) {
	engine := setupTestServer(t)
	rec := doJSON(engine, http.MethodGet, "/transcribe/", "")
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "healthy" || body["service"] != "audio-transcription-api" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestTranscribe_Lifecycle(t *testing.T) {
	engine := setupTestServer(t)

	body, ct := multipartFile(t, "file", "call.wav", []byte("RIFF....WAVEfmt "))
	rec := doRequest(engine, http.MethodPost, "/transcribe/", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	var started map[string]string
	decode(t, rec, &started)
	jobID := started["job_id"]
	if !strings.HasPrefix(jobID, "transcribe_") {
		t.Fatalf("unexpected job id %q", jobID)
	}
	if started["message"] != "Transcription started" {
		t.Errorf("unexpected message %q", started["message"])
	}
	if started["status_check"] != "/transcription-status/"+jobID {
		t.Errorf("unexpected status check %q", started["status_check"])
	}

	// The mock provider completes on its second poll.
	rec = doJSON(engine, http.MethodGet, "/transcribe/transcription-status/"+jobID, "")
	var pending map[string]string
	decode(t, rec, &pending)
	if pending["status"] != "in_progress" {
		t.Fatalf("expected in_progress, got %v", pending)
	}

	rec = doJSON(engine, http.MethodGet, "/transcribe/transcription-status/"+jobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	var records []models.TranscriptRecord
	decode(t, rec, &records)
	if len(records) != 5 {
		t.Fatalf("expected 5 utterances, got %d", len(records))
	}
	if records[0].AgentName != "spk_0" || records[0].Content != "Thanks for calling support" {
		t.Errorf("unexpected first utterance %+v", records[0])
	}

	rec = doJSON(engine, http.MethodDelete, "/transcribe/transcription-status/"+jobID, "")
	expectErrorCode(t, rec, http.StatusConflict, apperrors.ErrCodeConflict)
}

func TestTranscribe_Cancel(t *testing.T) {
	engine := setupTestServer(t)

	body, ct := multipartFile(t, "file", "call.mp3", []byte("ID3"))
	rec := doRequest(engine, http.MethodPost, "/transcribe/", body, ct)
	var started map[string]string
	decode(t, rec, &started)

	rec = doJSON(engine, http.MethodDelete, "/transcribe/transcription-status/"+started["job_id"], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	var cancelled map[string]string
	decode(t, rec, &cancelled)
	if cancelled["state"] != "CANCELLED" {
		t.Errorf("expected CANCELLED, got %v", cancelled)
	}

	rec = doJSON(engine, http.MethodGet, "/transcribe/transcription-status/"+started["job_id"], "")
	expectErrorCode(t, rec, http.StatusConflict, apperrors.ErrCodeConflict)
}

func TestTranscribe_Rejections(t *testing.T) {
	engine := setupTestServer(t)

	body, ct := multipartFile(t, "file", "notes.txt", []byte("hello"))
	rec := doRequest(engine, http.MethodPost, "/transcribe/", body, ct)
	expectErrorCode(t, rec, http.StatusBadRequest, apperrors.ErrCodeUnsupportedMedia)

	body, ct = multipartFile(t, "upload", "call.wav", []byte("RIFF"))
	rec = doRequest(engine, http.MethodPost, "/transcribe/", body, ct)
	expectErrorCode(t, rec, http.StatusBadRequest, apperrors.ErrCodeMissingField)

	body, ct = multipartFile(t, "file", "call.wav", make([]byte, 600<<10))
	rec = doRequest(engine, http.MethodPost, "/transcribe/", body, ct)
	expectErrorCode(t, rec, http.StatusRequestEntityTooLarge, apperrors.ErrCodePayloadTooLarge)

	rec = doJSON(engine, http.MethodGet, "/transcribe/transcription-status/transcribe_missing", "")
	expectErrorCode(t, rec, http.StatusNotFound, apperrors.ErrCodeNotFound)
}

func TestTranscribe_PDF(t *testing.T) {
	engine := setupTestServer(t)

	body, ct := multipartFile(t, "file", "call.mp3", []byte("ID3...."))
	rec := doRequest(engine, http.MethodPost, "/transcribe", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	var started map[string]string
	decode(t, rec, &started)
	path := "/transcribe/transcription-status/" + started["job_id"] + "/pdf"

	// first poll leaves the job in progress
	rec = doJSON(engine, http.MethodGet, path, "")
	expectErrorCode(t, rec, http.StatusConflict, apperrors.ErrCodeConflict)

	rec = doJSON(engine, http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("expected PDF body")
	}

	rec = doJSON(engine, http.MethodGet, "/transcribe/transcription-status/transcribe_missing/pdf", "")
	expectErrorCode(t, rec, http.StatusNotFound, apperrors.ErrCodeNotFound)
}
