package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nexus-support-service/internal/config"
	"nexus-support-service/internal/events"
)

type watchOptions struct {
	brokers []string
	topics  []string
	groupID string
	since   time.Duration
	job     string
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print transcription events from Kafka as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if len(opts.brokers) == 0 {
				opts.brokers = cfg.Kafka.Brokers
			}
			if len(opts.topics) == 0 {
				opts.topics = []string{cfg.Kafka.TopicStatus, cfg.Kafka.TopicTranscript}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.brokers, "brokers", nil, "Kafka brokers (defaults to KAFKA_BROKERS)")
	cmd.Flags().StringSliceVar(&opts.topics, "topic", nil, "topics to follow (defaults to the status and transcript topics)")
	cmd.Flags().StringVar(&opts.groupID, "group", "", "consumer group id; without it reading starts at --since")
	cmd.Flags().DurationVar(&opts.since, "since", 10*time.Minute, "how far back to start when not in a consumer group")
	cmd.Flags().StringVar(&opts.job, "job", "", "only print events for this job id")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, opts watchOptions) error {
	if len(opts.brokers) == 0 {
		return errors.New("no Kafka brokers configured")
	}

	consumers := make([]*events.Consumer, 0, len(opts.topics))
	defer func() {
		for _, c := range consumers {
			_ = c.Close()
		}
	}()
	for _, topic := range opts.topics {
		c, err := events.NewConsumer(events.ConsumerConfig{
			Brokers: opts.brokers,
			Topic:   topic,
			GroupID: opts.groupID,
			Since:   opts.since,
		})
		if err != nil {
			return err
		}
		consumers = append(consumers, c)
	}

	emit := newEnvelopePrinter(out, opts.job)
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		g.Go(func() error { return c.Run(ctx, emit) })
	}
	return g.Wait()
}

// newEnvelopePrinter serializes envelopes from concurrent consumers onto out.
func newEnvelopePrinter(out io.Writer, job string) func(events.Envelope) error {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	return func(env events.Envelope) error {
		if job != "" && env.Key != job {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(env)
	}
}
