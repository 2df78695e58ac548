package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nexus-support-service/internal/models"
	"nexus-support-service/internal/transcript"
)

type groupOptions struct {
	pauseThreshold time.Duration
	defaultSpeaker string
	base           string
	format         string
}

func newGroupCmd() *cobra.Command {
	opts := groupOptions{pauseThreshold: transcript.DefaultPauseThreshold}

	cmd := &cobra.Command{
		Use:   "group [file]",
		Short: "Group word tokens into utterances and print them as JSON",
		Long: "Reads an Amazon Transcribe result document or a JSON array of transcript\n" +
			"records from file, or stdin when file is \"-\" or omitted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runGroup(in, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().DurationVar(&opts.pauseThreshold, "pause-threshold", opts.pauseThreshold, "maximum distance from the start of an utterance")
	cmd.Flags().StringVar(&opts.defaultSpeaker, "default-speaker", "", "speaker for unlabelled Amazon Transcribe items")
	cmd.Flags().StringVar(&opts.base, "base", "", "recording start for Amazon Transcribe offsets, "+transcript.TimestampLayout)
	cmd.Flags().StringVar(&opts.format, "format", "auto", "input format: auto, aws or records")
	return cmd
}

func runGroup(in io.Reader, out io.Writer, opts groupOptions) error {
	if opts.pauseThreshold <= 0 {
		return errors.New("pause threshold must be positive")
	}

	r := bufio.NewReader(in)
	format := opts.format
	if format == "auto" {
		format = detectFormat(r)
	}

	var (
		tokens []transcript.WordToken
		err    error
	)
	switch format {
	case "aws":
		var base time.Time
		if opts.base != "" {
			if base, err = transcript.ParseTimestamp(opts.base); err != nil {
				return fmt.Errorf("invalid --base: %w", err)
			}
		}
		tokens, err = transcript.ParseAWSTranscript(r, base, opts.defaultSpeaker)
	case "records":
		var records []models.TranscriptRecord
		if err = json.NewDecoder(r).Decode(&records); err != nil {
			return fmt.Errorf("invalid records: %w", err)
		}
		tokens, err = transcript.ParseRecords(records)
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if err != nil {
		return err
	}
	if err := transcript.ValidateTokens(tokens); err != nil {
		return err
	}

	utterances := transcript.Grouper{PauseThreshold: opts.pauseThreshold}.Group(tokens)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(transcript.ToRecords(utterances))
}

// detectFormat peeks at the first non-space byte: an array holds records,
// anything else is treated as a provider document.
func detectFormat(r *bufio.Reader) string {
	for n := 1; ; n++ {
		b, err := r.Peek(n)
		if err != nil {
			return "aws"
		}
		switch b[n-1] {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return "records"
		default:
			return "aws"
		}
	}
}
