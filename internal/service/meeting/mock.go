package meeting

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProvider creates meetings locally for development and tests.
type MockProvider struct {
	mu       sync.Mutex
	meetings map[string]Meeting
	// Err makes every call fail when set.
	Err error
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{meetings: make(map[string]Meeting)}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) CreateMeeting(_ context.Context, in CreateMeetingInput) (Meeting, error) {
	if p.Err != nil {
		return Meeting{}, p.Err
	}
	id := uuid.NewString()
	host := fmt.Sprintf("%s.mock-meetings.%s.local", id, in.MediaRegion)
	m := Meeting{
		MeetingID:         id,
		ExternalMeetingID: in.ExternalMeetingID,
		MediaRegion:       in.MediaRegion,
		MediaPlacement: MediaPlacement{
			AudioHostURL:     host + ":3478",
			AudioFallbackURL: "wss://" + host + ":443/calls/" + id,
			SignalingURL:     "wss://signal." + host + "/control/" + id,
			TurnControlURL:   "https://turn." + host + "/v2/turn_sessions",
		},
	}

	p.mu.Lock()
	p.meetings[id] = m
	p.mu.Unlock()
	return m, nil
}

func (p *MockProvider) CreateAttendee(_ context.Context, meetingID, externalUserID string) (Attendee, error) {
	if p.Err != nil {
		return Attendee{}, p.Err
	}
	p.mu.Lock()
	_, ok := p.meetings[meetingID]
	p.mu.Unlock()
	if !ok {
		return Attendee{}, fmt.Errorf("mock: meeting %s not found", meetingID)
	}
	return Attendee{
		AttendeeID:     uuid.NewString(),
		ExternalUserID: externalUserID,
		JoinToken:      uuid.NewString(),
	}, nil
}
