package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Envelope is a consumed event with its Kafka coordinates.
type Envelope struct {
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	EventType string          `json:"eventType"`
	Principal string          `json:"principal,omitempty"`
	Offset    int64           `json:"offset"`
	Time      time.Time       `json:"time"`
	Event     json.RawMessage `json:"event"`
}

// ConsumerConfig selects the topic to read.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	// GroupID enables consumer group offsets. Without it the reader starts
	// at Since on partition 0.
	GroupID string
	Since   time.Duration
}

// Consumer reads job events from one topic.
type Consumer struct {
	reader *kafka.Reader
	topic  string
	since  time.Duration
	group  bool
}

// NewConsumer creates a reader for cfg.Topic.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("events: topic is required")
	}
	rc := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if cfg.GroupID == "" {
		rc.Partition = 0
	}
	return &Consumer{
		reader: kafka.NewReader(rc),
		topic:  cfg.Topic,
		since:  cfg.Since,
		group:  cfg.GroupID != "",
	}, nil
}

// Run reads messages and passes them to handle until ctx is cancelled or
// handle returns an error. Undecodable messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context, handle func(Envelope) error) error {
	if !c.group && c.since > 0 {
		if err := c.reader.SetOffsetAt(ctx, time.Now().Add(-c.since)); err != nil {
			return fmt.Errorf("events: seek %s: %w", c.topic, err)
		}
	}

	log.Info().Str("topic", c.topic).Bool("consumerGroup", c.group).Msg("Consuming events")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("topic", c.topic).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		env, err := Decode(msg)
		if err != nil {
			log.Warn().Err(err).Str("topic", c.topic).Int64("offset", msg.Offset).Msg("Skipping undecodable event")
			continue
		}
		if err := handle(env); err != nil {
			return err
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Decode converts a Kafka message written by Publisher into an Envelope.
func Decode(msg kafka.Message) (Envelope, error) {
	if !json.Valid(msg.Value) {
		return Envelope{}, errors.New("events: payload is not valid JSON")
	}
	env := Envelope{
		Topic:  msg.Topic,
		Key:    string(msg.Key),
		Offset: msg.Offset,
		Time:   msg.Time,
		Event:  json.RawMessage(msg.Value),
	}
	for _, h := range msg.Headers {
		switch h.Key {
		case "eventType":
			env.EventType = string(h.Value)
		case "principal":
			env.Principal = string(h.Value)
		}
	}
	if env.EventType == "" {
		var probe struct {
			EventType string `json:"eventType"`
		}
		_ = json.Unmarshal(msg.Value, &probe)
		env.EventType = probe.EventType
	}
	return env, nil
}
