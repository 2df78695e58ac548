package meeting

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/repository/memory"
)

func expectCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError with code %s, got %v", code, err)
	}
	if appErr.Code != code {
		t.Errorf("expected code %s, got %s", code, appErr.Code)
	}
}

func TestExternalMeetingID(t *testing.T) {
	got := ExternalMeetingID(time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC))
	if got != "meeting-20240307-140509" {
		t.Errorf("expected meeting-20240307-140509, got %s", got)
	}
}

func TestService_CreateMeeting(t *testing.T) {
	repo := memory.New[Record]()
	svc := NewService(NewMockProvider(), repo, "")
	svc.now = func() time.Time { return time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC) }
	ctx := context.Background()

	res, err := svc.CreateMeeting(ctx, "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ExternalMeetingID != "meeting-20240307-140509" {
		t.Errorf("unexpected external id %s", res.ExternalMeetingID)
	}
	if res.CustomerJoinLink != "/get-customer-join-data/"+res.MeetingID {
		t.Errorf("unexpected join link %s", res.CustomerJoinLink)
	}
	if res.AgentJoinData.Attendee.ExternalUserID != "agent-42" {
		t.Errorf("expected agent-42, got %s", res.AgentJoinData.Attendee.ExternalUserID)
	}
	if res.AgentJoinData.Meeting.MediaRegion != DefaultMediaRegion {
		t.Errorf("expected default media region, got %s", res.AgentJoinData.Meeting.MediaRegion)
	}
	if repo.Len() != 1 {
		t.Errorf("expected 1 stored meeting, got %d", repo.Len())
	}

	join, err := svc.CustomerJoinData(ctx, res.MeetingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	customer := regexp.MustCompile(`^customer-[0-9a-f-]{36}$`)
	if !customer.MatchString(join.Attendee.ExternalUserID) {
		t.Errorf("unexpected customer attendee %s", join.Attendee.ExternalUserID)
	}
	if join.Attendee.AttendeeID == res.AgentJoinData.Attendee.AttendeeID {
		t.Error("expected distinct agent and customer attendees")
	}
	if join.Meeting.MeetingID != res.AgentJoinData.Meeting.MeetingID {
		t.Error("expected the customer to join the same meeting")
	}

	info, err := svc.Info(ctx, res.MeetingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Status != "active" || info.MeetingID != res.MeetingID {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestService_NotFound(t *testing.T) {
	svc := NewService(NewMockProvider(), memory.New[Record](), "us-east-1")

	_, err := svc.CustomerJoinData(context.Background(), "missing")
	expectCode(t, err, apperrors.ErrCodeNotFound)

	_, err = svc.Info(context.Background(), "missing")
	expectCode(t, err, apperrors.ErrCodeNotFound)
}

func TestService_CreateMeeting_Errors(t *testing.T) {
	svc := NewService(NewMockProvider(), memory.New[Record](), "")
	_, err := svc.CreateMeeting(context.Background(), "  ")
	expectCode(t, err, apperrors.ErrCodeMissingField)

	p := NewMockProvider()
	p.Err = errors.New("throttled")
	repo := memory.New[Record]()
	svc = NewService(p, repo, "")
	_, err = svc.CreateMeeting(context.Background(), "42")
	expectCode(t, err, apperrors.ErrCodeExternalService)
	if repo.Len() != 0 {
		t.Errorf("expected nothing stored, got %d", repo.Len())
	}
}

func TestMockProvider_UnknownMeeting(t *testing.T) {
	_, err := NewMockProvider().CreateAttendee(context.Background(), "missing", "agent-1")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}
