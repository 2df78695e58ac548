// Package transcript turns per-word speech-to-text output into per-speaker utterances.
package transcript

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPauseThreshold is the run span above which a same-speaker run is split.
const DefaultPauseThreshold = time.Second

// WordToken is one transcribed word attributed to a speaker.
type WordToken struct {
	SpeakerLabel string    `validate:"required"`
	Content      string    `validate:"required"`
	Timestamp    time.Time `validate:"required"`
}

// Utterance is a maximal run of consecutive tokens forming one speaking turn.
type Utterance struct {
	ID             string
	SpeakerLabel   string
	StartTimestamp time.Time
	Content        string
}

// Grouper groups word tokens into utterances.
//
// The zero value uses DefaultPauseThreshold and random UUIDs. A Grouper holds
// no mutable state and may be shared between goroutines.
type Grouper struct {
	// PauseThreshold is compared against the distance between a token and the
	// start of the current run. A distance equal to the threshold does not split.
	// Zero or negative values use DefaultPauseThreshold.
	PauseThreshold time.Duration

	// NewID generates utterance identifiers. Defaults to uuid.NewString.
	NewID func() string
}

// Group groups tokens with the default Grouper.
func Group(tokens []WordToken) []Utterance {
	return Grouper{}.Group(tokens)
}

// Group performs a single forward pass over tokens.
//
// Tokens are expected in non-decreasing timestamp order; they are not
// re-sorted. The gap is the signed difference between a token and the run
// start, so an earlier token of the same speaker never splits the run and
// moves the run start back instead.
func (g Grouper) Group(tokens []WordToken) []Utterance {
	grouped := make([]Utterance, 0)
	if len(tokens) == 0 {
		return grouped
	}

	threshold := g.PauseThreshold
	if threshold <= 0 {
		threshold = DefaultPauseThreshold
	}
	newID := g.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	currentSpeaker := tokens[0].SpeakerLabel
	phrase := []string{tokens[0].Content}
	runStart := tokens[0].Timestamp

	emit := func() {
		grouped = append(grouped, Utterance{
			ID:             newID(),
			SpeakerLabel:   currentSpeaker,
			StartTimestamp: runStart,
			Content:        strings.Join(phrase, " "),
		})
	}

	for _, t := range tokens[1:] {
		reference := t.Timestamp
		if len(phrase) > 0 {
			reference = runStart
		}
		gap := t.Timestamp.Sub(reference)

		if t.SpeakerLabel != currentSpeaker || (len(phrase) > 0 && gap > threshold) {
			if len(phrase) > 0 {
				emit()
			}
			currentSpeaker = t.SpeakerLabel
			phrase = []string{t.Content}
			runStart = t.Timestamp
			continue
		}

		phrase = append(phrase, t.Content)
		if t.Timestamp.Before(runStart) {
			runStart = t.Timestamp
		}
	}

	if len(phrase) > 0 {
		emit()
	}
	return grouped
}
