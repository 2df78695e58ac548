package http

import (
	"net/http"
	"testing"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/service/meeting"
)

func TestMeetings(t *testing.T) {
	engine := setupTestServer(t)

	rec := doJSON(engine, http.MethodPost, "/call/create-meeting", `{"agent_id":"7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	var created meeting.CreateResult
	decode(t, rec, &created)
	if created.AgentJoinData.Attendee.ExternalUserID != "agent-7" {
		t.Errorf("unexpected agent attendee %+v", created.AgentJoinData.Attendee)
	}
	if created.CustomerJoinLink != "/get-customer-join-data/"+created.MeetingID {
		t.Errorf("unexpected join link %s", created.CustomerJoinLink)
	}

	rec = doJSON(engine, http.MethodGet, "/call/get-customer-join-data/"+created.MeetingID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var join meeting.JoinData
	decode(t, rec, &join)
	if join.Meeting.MeetingID != created.AgentJoinData.Meeting.MeetingID {
		t.Error("expected customer to join the agent's meeting")
	}

	rec = doJSON(engine, http.MethodGet, "/call/meeting-info/"+created.MeetingID, "")
	var info map[string]string
	decode(t, rec, &info)
	if info["status"] != "active" || info["meeting_id"] != created.MeetingID {
		t.Errorf("unexpected info %v", info)
	}
}

func TestMeetings_Errors(t *testing.T) {
	engine := setupTestServer(t)

	rec := doJSON(engine, http.MethodPost, "/call/create-meeting", `{}`)
	expectErrorCode(t, rec, http.StatusBadRequest, apperrors.ErrCodeMissingField)

	rec = doJSON(engine, http.MethodGet, "/call/get-customer-join-data/missing", "")
	expectErrorCode(t, rec, http.StatusNotFound, apperrors.ErrCodeNotFound)

	rec = doJSON(engine, http.MethodGet, "/call/meeting-info/missing", "")
	expectErrorCode(t, rec, http.StatusNotFound, apperrors.ErrCodeNotFound)
}
