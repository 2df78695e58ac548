// Package aws provides an Amazon Transcribe provider.
//
// Recordings are read from, and transcripts written to, the configured S3
// bucket. The transcript JSON is read back through storage.Storage.
package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/rs/zerolog/log"

	"nexus-support-service/internal/service/stt"
	"nexus-support-service/internal/storage"
	"nexus-support-service/internal/transcript"
)

// API is the subset of the Transcribe client used by the provider.
type API interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// Config holds Transcribe provider settings.
type Config struct {
	// OutputBucket receives the transcript JSON.
	OutputBucket   string
	DefaultSpeaker string
}

// Provider implements stt.Provider using Amazon Transcribe.
type Provider struct {
	api   API
	store storage.Storage
	cfg   Config
	base  time.Time
}

// New creates a provider from an already loaded aws.Config.
func New(awsCfg aws.Config, store storage.Storage, cfg Config) (*Provider, error) {
	return NewWithAPI(transcribe.NewFromConfig(awsCfg), store, cfg)
}

// NewWithAPI creates a provider around an existing Transcribe client.
func NewWithAPI(api API, store storage.Storage, cfg Config) (*Provider, error) {
	if cfg.OutputBucket == "" {
		return nil, errors.New("stt/aws: output bucket is required")
	}
	if store == nil {
		return nil, errors.New("stt/aws: storage is required")
	}
	if cfg.DefaultSpeaker == "" {
		cfg.DefaultSpeaker = "spk_0"
	}
	return &Provider{api: api, store: store, cfg: cfg, base: time.Unix(0, 0).UTC()}, nil
}

func (p *Provider) Name() string { return "aws" }

// StartJob starts a Transcribe job named after the request.
func (p *Provider) StartJob(ctx context.Context, req stt.JobRequest) (stt.Handle, error) {
	if err := req.Validate(); err != nil {
		return stt.Handle{}, err
	}
	if req.OutputKey == "" {
		return stt.Handle{}, errors.New("stt/aws: output key is required")
	}

	in := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.JobName),
		LanguageCode:         types.LanguageCode(req.LanguageCode),
		MediaFormat:          types.MediaFormat(req.MediaFormat),
		Media:                &types.Media{MediaFileUri: aws.String(req.MediaURI)},
		OutputBucketName:     aws.String(p.cfg.OutputBucket),
		OutputKey:            aws.String(req.OutputKey),
		Settings: &types.Settings{
			ShowSpeakerLabels:     aws.Bool(req.ShowSpeakerLabels),
			ChannelIdentification: aws.Bool(req.ChannelIdentification),
		},
	}
	if req.ShowSpeakerLabels {
		in.Settings.MaxSpeakerLabels = aws.Int32(int32(req.MaxSpeakers))
	}

	if _, err := p.api.StartTranscriptionJob(ctx, in); err != nil {
		return stt.Handle{}, fmt.Errorf("stt/aws: start %s: %w", req.JobName, err)
	}

	log.Debug().
		Str("jobId", req.JobName).
		Str("mediaUri", req.MediaURI).
		Str("outputKey", req.OutputKey).
		Msg("Transcribe job started")

	return stt.Handle{Ref: req.JobName, OutputKey: req.OutputKey}, nil
}

// JobStatus maps the Transcribe job status onto stt.State.
func (p *Provider) JobStatus(ctx context.Context, h stt.Handle) (stt.JobStatus, error) {
	out, err := p.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(h.Ref),
	})
	if err != nil {
		var nf *types.NotFoundException
		if errors.As(err, &nf) {
			return stt.JobStatus{}, stt.ErrJobNotFound
		}
		return stt.JobStatus{}, fmt.Errorf("stt/aws: status %s: %w", h.Ref, err)
	}
	if out.TranscriptionJob == nil {
		return stt.JobStatus{}, stt.ErrJobNotFound
	}

	job := out.TranscriptionJob
	switch job.TranscriptionJobStatus {
	case types.TranscriptionJobStatusCompleted:
		return stt.JobStatus{State: stt.StateCompleted}, nil
	case types.TranscriptionJobStatusFailed:
		return stt.JobStatus{State: stt.StateFailed, FailureReason: aws.ToString(job.FailureReason)}, nil
	case types.TranscriptionJobStatusInProgress:
		return stt.JobStatus{State: stt.StateInProgress}, nil
	default:
		return stt.JobStatus{State: stt.StateQueued}, nil
	}
}

// Words reads the transcript JSON from the job's output key.
func (p *Provider) Words(ctx context.Context, h stt.Handle) ([]transcript.WordToken, error) {
	if h.OutputKey == "" {
		return nil, fmt.Errorf("stt/aws: job %s has no output key", h.Ref)
	}

	rc, err := p.store.Download(ctx, h.OutputKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("stt/aws: transcript for %s not written yet: %w", h.Ref, err)
		}
		return nil, fmt.Errorf("stt/aws: read transcript %s: %w", h.OutputKey, err)
	}
	defer rc.Close()

	return transcript.ParseAWSTranscript(rc, p.base, p.cfg.DefaultSpeaker)
}
