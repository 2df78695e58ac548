package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"nexus-support-service/internal/models"
	"nexus-support-service/internal/schema"
)

const (
	// TimestampLayout is the textual timestamp format of wire records.
	TimestampLayout = "2006-01-02 15:04:05.000000"

	// DefaultSpeakerLabel is substituted for items without a diarization label.
	DefaultSpeakerLabel = "spk_0"

	itemTypePronunciation = "pronunciation"

	// time.Parse accepts an optional fractional second after this layout.
	parseLayout = "2006-01-02 15:04:05"
)

// awsTranscript mirrors the parts of an Amazon Transcribe result document we read.
type awsTranscript struct {
	JobName string `json:"jobName"`
	Status  string `json:"status"`
	Results struct {
		Items []awsItem `json:"items"`
	} `json:"results"`
}

type awsItem struct {
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Type         string  `json:"type"`
	SpeakerLabel string  `json:"speaker_label"`
	Alternatives []struct {
		Confidence string `json:"confidence"`
		Content    string `json:"content"`
	} `json:"alternatives"`
}

// ParseAWSTranscript decodes an Amazon Transcribe result document into word tokens.
//
// Only pronunciation items carrying a start time are kept. Start offsets are
// added to base; a zero base means the Unix epoch. Items without a speaker
// label get defaultSpeaker, or DefaultSpeakerLabel when that is empty.
func ParseAWSTranscript(r io.Reader, base time.Time, defaultSpeaker string) ([]WordToken, error) {
	var doc awsTranscript
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &ParseError{Field: "transcript", Reason: "invalid JSON", Err: err}
	}
	if defaultSpeaker == "" {
		defaultSpeaker = DefaultSpeakerLabel
	}

	tokens := make([]WordToken, 0, len(doc.Results.Items))
	for i, item := range doc.Results.Items {
		if item.Type != itemTypePronunciation || item.StartTime == nil {
			continue
		}
		if len(item.Alternatives) == 0 {
			return nil, &ParseError{Field: fmt.Sprintf("items[%d].alternatives", i), Reason: "no alternatives"}
		}
		ts, err := OffsetTimestamp(base, *item.StartTime)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Field = fmt.Sprintf("items[%d].start_time", i)
			}
			return nil, err
		}
		speaker := item.SpeakerLabel
		if speaker == "" {
			speaker = defaultSpeaker
		}
		tokens = append(tokens, WordToken{
			SpeakerLabel: speaker,
			Content:      item.Alternatives[0].Content,
			Timestamp:    ts,
		})
	}
	return tokens, nil
}

// OffsetTimestamp converts a decimal seconds offset such as "12.345" into an
// absolute time relative to base. The decimal is parsed exactly to the
// nanosecond so ordering and sub-second gaps survive the conversion.
func OffsetTimestamp(base time.Time, seconds string) (time.Time, error) {
	d, err := ParseSecondsOffset(seconds)
	if err != nil {
		return time.Time{}, err
	}
	if base.IsZero() {
		base = time.Unix(0, 0).UTC()
	}
	return base.Add(d), nil
}

const maxOffsetSeconds = math.MaxInt64 / int64(time.Second)

// ParseSecondsOffset parses a non-negative decimal number of seconds.
// Digits beyond nanosecond precision are truncated.
func ParseSecondsOffset(s string) (time.Duration, error) {
	raw := s
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, &ParseError{Field: "offset", Value: raw, Reason: "empty"}
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, &ParseError{Field: "offset", Value: raw, Reason: "not a decimal number of seconds"}
	}

	var secs int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil || v > maxOffsetSeconds {
			return 0, &ParseError{Field: "offset", Value: raw, Reason: "out of range", Err: err}
		}
		secs = v
	}

	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	nanos, _ := strconv.ParseInt(frac, 10, 64)

	if secs*int64(time.Second) > math.MaxInt64-nanos {
		return 0, &ParseError{Field: "offset", Value: raw, Reason: "out of range"}
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatTimestamp renders t in TimestampLayout (UTC). Output always carries
// six fractional digits, whatever form the input timestamp had.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a wire timestamp with or without fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(parseLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ParseError{Field: "timestamp", Value: s, Err: err}
	}
	return t, nil
}

// ValidateTokens checks the grouping preconditions: every token has a speaker
// label, content and timestamp, and timestamps never decrease.
func ValidateTokens(tokens []WordToken) error {
	for i, tok := range tokens {
		if err := schema.Validate(tok); err != nil {
			var se *schema.Error
			if errors.As(err, &se) && len(se.Fields) > 0 {
				return &ValidationError{Index: i, Field: se.Fields[0].Field, Reason: se.Fields[0].Message}
			}
			return &ValidationError{Index: i, Field: "token", Reason: err.Error()}
		}
		if i > 0 && tok.Timestamp.Before(tokens[i-1].Timestamp) {
			return &ValidationError{Index: i, Field: "timestamp", Reason: "is earlier than the previous token"}
		}
	}
	return nil
}

// ParseRecords converts wire records into word tokens. Record IDs are ignored.
func ParseRecords(records []models.TranscriptRecord) ([]WordToken, error) {
	tokens := make([]WordToken, 0, len(records))
	for i, rec := range records {
		ts, err := ParseTimestamp(rec.Timestamp)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Field = fmt.Sprintf("records[%d].timestamp", i)
			}
			return nil, err
		}
		tokens = append(tokens, WordToken{
			SpeakerLabel: rec.AgentName,
			Content:      rec.Content,
			Timestamp:    ts,
		})
	}
	return tokens, nil
}

// ToRecords converts utterances into wire records.
func ToRecords(utterances []Utterance) []models.TranscriptRecord {
	records := make([]models.TranscriptRecord, 0, len(utterances))
	for _, u := range utterances {
		records = append(records, models.TranscriptRecord{
			ID:        u.ID,
			Timestamp: FormatTimestamp(u.StartTimestamp),
			AgentName: u.SpeakerLabel,
			Content:   u.Content,
		})
	}
	return records
}
