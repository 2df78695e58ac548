// Package meeting creates one-on-one agent/customer calls and keeps their
// join data for the customer side.
package meeting

import "context"

// MediaPlacement holds the media endpoints of a meeting. JSON keys follow the
// AWS response shape expected by browser SDKs.
type MediaPlacement struct {
	AudioHostURL      string `json:"AudioHostUrl"`
	AudioFallbackURL  string `json:"AudioFallbackUrl"`
	SignalingURL      string `json:"SignalingUrl"`
	TurnControlURL    string `json:"TurnControlUrl"`
	ScreenDataURL     string `json:"ScreenDataUrl,omitempty"`
	ScreenViewingURL  string `json:"ScreenViewingUrl,omitempty"`
	ScreenSharingURL  string `json:"ScreenSharingUrl,omitempty"`
	EventIngestionURL string `json:"EventIngestionUrl,omitempty"`
}

// Meeting is a provider-side meeting.
type Meeting struct {
	MeetingID         string         `json:"MeetingId"`
	ExternalMeetingID string         `json:"ExternalMeetingId"`
	MediaRegion       string         `json:"MediaRegion"`
	MeetingArn        string         `json:"MeetingArn,omitempty"`
	MediaPlacement    MediaPlacement `json:"MediaPlacement"`
}

// Attendee is a participant with its join token.
type Attendee struct {
	AttendeeID     string `json:"AttendeeId"`
	ExternalUserID string `json:"ExternalUserId"`
	JoinToken      string `json:"JoinToken"`
}

// CreateMeetingInput describes a meeting to create.
type CreateMeetingInput struct {
	ClientRequestToken string
	ExternalMeetingID  string
	MediaRegion        string
	EchoReduction      bool
}

// Provider creates meetings and attendees.
type Provider interface {
	Name() string
	CreateMeeting(ctx context.Context, in CreateMeetingInput) (Meeting, error)
	CreateAttendee(ctx context.Context, meetingID, externalUserID string) (Attendee, error)
}
