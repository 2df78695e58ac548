package meeting

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/observability/logging"
	"nexus-support-service/internal/observability/metrics"
	"nexus-support-service/internal/repository"
)

// Record is a created meeting as stored in the meeting repository.
type Record struct {
	ID                string    `json:"id"`
	ExternalMeetingID string    `json:"externalMeetingId"`
	AgentID           string    `json:"agentId"`
	Meeting           Meeting   `json:"meeting"`
	AgentAttendee     Attendee  `json:"agentAttendee"`
	CustomerAttendee  Attendee  `json:"customerAttendee"`
	CreatedAt         time.Time `json:"createdAt"`
}

// JoinData is what a participant needs to join.
type JoinData struct {
	Meeting  Meeting  `json:"meeting"`
	Attendee Attendee `json:"attendee"`
}

// CreateResult is returned to the agent that created the meeting.
type CreateResult struct {
	MeetingID         string   `json:"meeting_id"`
	AgentJoinData     JoinData `json:"agent_join_data"`
	CustomerJoinLink  string   `json:"customer_join_link"`
	ExternalMeetingID string   `json:"external_meeting_id"`
}

// Info is the status of a known meeting.
type Info struct {
	Status    string `json:"status"`
	MeetingID string `json:"meeting_id"`
}

// DefaultMediaRegion is used when no region is configured.
const DefaultMediaRegion = "ap-southeast-1"

// Service creates meetings and serves their join data.
type Service struct {
	provider    Provider
	repo        repository.Repository[Record]
	mediaRegion string
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewService creates a meeting service.
func NewService(provider Provider, repo repository.Repository[Record], mediaRegion string) *Service {
	if mediaRegion == "" {
		mediaRegion = DefaultMediaRegion
	}
	return &Service{
		provider:    provider,
		repo:        repo,
		mediaRegion: mediaRegion,
		metrics:     metrics.DefaultMetrics,
		now:         time.Now,
	}
}

// ExternalMeetingID formats the external id of a meeting created at t.
func ExternalMeetingID(t time.Time) string {
	return "meeting-" + t.Format("20060102-150405")
}

// CreateMeeting creates a meeting with one agent and one customer attendee.
func (s *Service) CreateMeeting(ctx context.Context, agentID string) (_ *CreateResult, err error) {
	defer func() { s.metrics.RecordMeetingCreated(s.provider.Name(), err) }()

	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.MissingField("agent_id")
	}

	id := uuid.NewString()
	now := s.now()
	externalID := ExternalMeetingID(now)
	logger := logging.WithMeeting(id, externalID)

	m, err := s.provider.CreateMeeting(ctx, CreateMeetingInput{
		ClientRequestToken: id,
		ExternalMeetingID:  externalID,
		MediaRegion:        s.mediaRegion,
		EchoReduction:      true,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create meeting")
		return nil, apperrors.ExternalService(s.provider.Name(), err)
	}

	agent, err := s.provider.CreateAttendee(ctx, m.MeetingID, "agent-"+agentID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create agent attendee")
		return nil, apperrors.ExternalService(s.provider.Name(), err)
	}
	customer, err := s.provider.CreateAttendee(ctx, m.MeetingID, "customer-"+uuid.NewString())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create customer attendee")
		return nil, apperrors.ExternalService(s.provider.Name(), err)
	}

	rec := Record{
		ID:                id,
		ExternalMeetingID: externalID,
		AgentID:           agentID,
		Meeting:           m,
		AgentAttendee:     agent,
		CustomerAttendee:  customer,
		CreatedAt:         now.UTC(),
	}
	if err := s.repo.Put(ctx, id, rec); err != nil {
		logger.Error().Err(err).Msg("Failed to store meeting")
		return nil, apperrors.DatabaseError(err)
	}

	logger.Info().
		Str("agentId", agentID).
		Str("providerMeetingId", m.MeetingID).
		Str("mediaRegion", m.MediaRegion).
		Msg("Meeting created")

	return &CreateResult{
		MeetingID:         id,
		AgentJoinData:     JoinData{Meeting: m, Attendee: agent},
		CustomerJoinLink:  "/get-customer-join-data/" + id,
		ExternalMeetingID: externalID,
	}, nil
}

func (s *Service) get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Meeting", id)
		}
		return nil, apperrors.DatabaseError(err)
	}
	return &rec, nil
}

// CustomerJoinData returns the meeting and the customer attendee.
func (s *Service) CustomerJoinData(ctx context.Context, id string) (*JoinData, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JoinData{Meeting: rec.Meeting, Attendee: rec.CustomerAttendee}, nil
}

// Info reports a known meeting as active.
func (s *Service) Info(ctx context.Context, id string) (*Info, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	return &Info{Status: "active", MeetingID: id}, nil
}
