package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings/types"
)

// ChimeAPI is the subset of the Chime SDK Meetings client the provider uses.
type ChimeAPI interface {
	CreateMeeting(ctx context.Context, in *chimesdkmeetings.CreateMeetingInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateMeetingOutput, error)
	CreateAttendee(ctx context.Context, in *chimesdkmeetings.CreateAttendeeInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateAttendeeOutput, error)
}

// ChimeProvider implements Provider with Amazon Chime SDK Meetings.
type ChimeProvider struct {
	api ChimeAPI
}

// NewChimeProvider creates a provider from an already loaded aws.Config.
func NewChimeProvider(awsCfg aws.Config) *ChimeProvider {
	return &ChimeProvider{api: chimesdkmeetings.NewFromConfig(awsCfg)}
}

// NewChimeProviderWithAPI wraps an existing client.
func NewChimeProviderWithAPI(api ChimeAPI) *ChimeProvider {
	return &ChimeProvider{api: api}
}

func (p *ChimeProvider) Name() string { return "chime" }

func (p *ChimeProvider) CreateMeeting(ctx context.Context, in CreateMeetingInput) (Meeting, error) {
	req := &chimesdkmeetings.CreateMeetingInput{
		ClientRequestToken: aws.String(in.ClientRequestToken),
		ExternalMeetingId:  aws.String(in.ExternalMeetingID),
		MediaRegion:        aws.String(in.MediaRegion),
	}
	if in.EchoReduction {
		req.MeetingFeatures = &types.MeetingFeaturesConfiguration{
			Audio: &types.AudioFeatures{EchoReduction: types.MeetingFeatureStatusAvailable},
		}
	}

	out, err := p.api.CreateMeeting(ctx, req)
	if err != nil {
		return Meeting{}, fmt.Errorf("chime: create meeting: %w", err)
	}
	if out.Meeting == nil {
		return Meeting{}, errors.New("chime: create meeting returned no meeting")
	}
	return meetingFromChime(out.Meeting), nil
}

func (p *ChimeProvider) CreateAttendee(ctx context.Context, meetingID, externalUserID string) (Attendee, error) {
	out, err := p.api.CreateAttendee(ctx, &chimesdkmeetings.CreateAttendeeInput{
		MeetingId:      aws.String(meetingID),
		ExternalUserId: aws.String(externalUserID),
	})
	if err != nil {
		return Attendee{}, fmt.Errorf("chime: create attendee: %w", err)
	}
	if out.Attendee == nil {
		return Attendee{}, errors.New("chime: create attendee returned no attendee")
	}
	return Attendee{
		AttendeeID:     aws.ToString(out.Attendee.AttendeeId),
		ExternalUserID: aws.ToString(out.Attendee.ExternalUserId),
		JoinToken:      aws.ToString(out.Attendee.JoinToken),
	}, nil
}

func meetingFromChime(m *types.Meeting) Meeting {
	out := Meeting{
		MeetingID:         aws.ToString(m.MeetingId),
		ExternalMeetingID: aws.ToString(m.ExternalMeetingId),
		MediaRegion:       aws.ToString(m.MediaRegion),
		MeetingArn:        aws.ToString(m.MeetingArn),
	}
	if mp := m.MediaPlacement; mp != nil {
		out.MediaPlacement = MediaPlacement{
			AudioHostURL:      aws.ToString(mp.AudioHostUrl),
			AudioFallbackURL:  aws.ToString(mp.AudioFallbackUrl),
			SignalingURL:      aws.ToString(mp.SignalingUrl),
			TurnControlURL:    aws.ToString(mp.TurnControlUrl),
			ScreenDataURL:     aws.ToString(mp.ScreenDataUrl),
			ScreenViewingURL:  aws.ToString(mp.ScreenViewingUrl),
			ScreenSharingURL:  aws.ToString(mp.ScreenSharingUrl),
			EventIngestionURL: aws.ToString(mp.EventIngestionUrl),
		}
	}
	return out
}
