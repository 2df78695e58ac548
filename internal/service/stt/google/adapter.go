// Package google provides a Google Cloud Speech-to-Text provider.
package google

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/status"

	"nexus-support-service/internal/service/stt"
	"nexus-support-service/internal/storage"
	"nexus-support-service/internal/transcript"
)

// Config holds Google STT configuration.
type Config struct {
	LanguageCode string
	SampleRateHz int32
	// AudioEncoding is used for formats without a self-describing header.
	AudioEncoding  string
	DefaultSpeaker string
}

// DefaultConfig returns configuration suited to telephony recordings.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		SampleRateHz:   8000,
		AudioEncoding:  "LINEAR16",
		DefaultSpeaker: "spk_0",
	}
}

// operations is the subset of the long-running recognize API the provider uses.
type operations interface {
	start(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (string, error)
	// poll returns done=true with a nil error and the response on success,
	// done=true with the operation error on failure, and done=false while running.
	poll(ctx context.Context, name string) (*speechpb.LongRunningRecognizeResponse, bool, error)
}

type clientOps struct {
	client *speech.Client
}

func (c clientOps) start(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (string, error) {
	op, err := c.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return "", err
	}
	return op.Name(), nil
}

func (c clientOps) poll(ctx context.Context, name string) (*speechpb.LongRunningRecognizeResponse, bool, error) {
	op := c.client.LongRunningRecognizeOperation(name)
	resp, err := op.Poll(ctx)
	if err != nil && !op.Done() {
		return nil, false, err
	}
	return resp, op.Done(), err
}

// Provider implements stt.Provider using Google Cloud Speech-to-Text.
type Provider struct {
	ops    operations
	client *speech.Client
	store  storage.Storage
	cfg    Config
	base   time.Time
}

// New creates a new Google STT provider.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
// Recordings that are not in Cloud Storage are read from store and sent inline.
func New(ctx context.Context, store storage.Storage, cfg Config) (*Provider, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Provider{
		ops:    clientOps{client: c},
		client: c,
		store:  store,
		cfg:    cfg,
		base:   time.Unix(0, 0).UTC(),
	}, nil
}

func (p *Provider) Name() string { return "google" }

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// StartJob submits a LongRunningRecognize request with speaker diarization.
func (p *Provider) StartJob(ctx context.Context, req stt.JobRequest) (stt.Handle, error) {
	if err := req.Validate(); err != nil {
		return stt.Handle{}, err
	}

	audio, err := p.audio(ctx, req)
	if err != nil {
		return stt.Handle{}, err
	}

	lang := req.LanguageCode
	if lang == "" {
		lang = p.cfg.LanguageCode
	}

	rc := &speechpb.RecognitionConfig{
		Encoding:              encodingForFormat(req.MediaFormat, p.cfg.AudioEncoding),
		LanguageCode:          lang,
		EnableWordTimeOffsets: true,
	}
	// WAV and FLAC carry their sample rate in the header.
	if rc.Encoding != speechpb.RecognitionConfig_LINEAR16 && rc.Encoding != speechpb.RecognitionConfig_FLAC {
		rc.SampleRateHertz = p.cfg.SampleRateHz
	}
	if req.ShowSpeakerLabels {
		rc.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          1,
			MaxSpeakerCount:          int32(req.MaxSpeakers),
		}
	}

	name, err := p.ops.start(ctx, &speechpb.LongRunningRecognizeRequest{Config: rc, Audio: audio})
	if err != nil {
		return stt.Handle{}, fmt.Errorf("google: start %s: %w", req.JobName, err)
	}

	log.Debug().
		Str("jobId", req.JobName).
		Str("operation", name).
		Msg("Google recognition started")

	return stt.Handle{Ref: name}, nil
}

func (p *Provider) audio(ctx context.Context, req stt.JobRequest) (*speechpb.RecognitionAudio, error) {
	if strings.HasPrefix(req.MediaURI, "gs://") {
		return &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: req.MediaURI},
		}, nil
	}
	if p.store == nil {
		return nil, fmt.Errorf("google: media %s is not in cloud storage and no store is configured", req.MediaURI)
	}

	rc, err := p.store.Download(ctx, req.MediaKey)
	if err != nil {
		return nil, fmt.Errorf("google: read media %s: %w", req.MediaKey, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("google: read media %s: %w", req.MediaKey, err)
	}
	return &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
	}, nil
}

// JobStatus polls the long-running operation.
func (p *Provider) JobStatus(ctx context.Context, h stt.Handle) (stt.JobStatus, error) {
	_, done, err := p.ops.poll(ctx, h.Ref)
	switch {
	case !done && err != nil:
		return stt.JobStatus{}, err
	case !done:
		return stt.JobStatus{State: stt.StateInProgress}, nil
	case err != nil:
		return stt.JobStatus{State: stt.StateFailed, FailureReason: status.Convert(err).Message()}, nil
	}
	return stt.JobStatus{State: stt.StateCompleted}, nil
}

// Words returns the diarized words of a completed operation.
func (p *Provider) Words(ctx context.Context, h stt.Handle) ([]transcript.WordToken, error) {
	resp, done, err := p.ops.poll(ctx, h.Ref)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("google: operation %s still running", h.Ref)
	}
	return wordsFromResponse(resp, p.base, p.cfg.DefaultSpeaker), nil
}

// wordsFromResponse extracts word tokens. With diarization enabled the final
// result repeats every word with its speaker tag, so that result is used alone
// when present.
func wordsFromResponse(resp *speechpb.LongRunningRecognizeResponse, base time.Time, defaultSpeaker string) []transcript.WordToken {
	words := make([]transcript.WordToken, 0)
	if resp == nil || len(resp.Results) == 0 {
		return words
	}

	var infos []*speechpb.WordInfo
	last := resp.Results[len(resp.Results)-1]
	if len(last.Alternatives) > 0 && hasSpeakerTags(last.Alternatives[0].Words) {
		infos = last.Alternatives[0].Words
	} else {
		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			infos = append(infos, r.Alternatives[0].Words...)
		}
	}

	for _, w := range infos {
		if w.Word == "" {
			continue
		}
		speaker := defaultSpeaker
		if w.SpeakerTag > 0 {
			speaker = fmt.Sprintf("spk_%d", w.SpeakerTag-1)
		}
		words = append(words, transcript.WordToken{
			SpeakerLabel: speaker,
			Content:      w.Word,
			Timestamp:    base.Add(w.StartTime.AsDuration()),
		})
	}
	return words
}

func hasSpeakerTags(words []*speechpb.WordInfo) bool {
	for _, w := range words {
		if w.SpeakerTag > 0 {
			return true
		}
	}
	return false
}

func encodingForFormat(format, fallback string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(format) {
	case "wav":
		return speechpb.RecognitionConfig_LINEAR16
	case "flac":
		return speechpb.RecognitionConfig_FLAC
	}
	return parseAudioEncoding(fallback)
}

func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[s]; ok && v != 0 {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_LINEAR16
}
