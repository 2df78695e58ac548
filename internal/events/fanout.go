package events

import (
	"context"
	"errors"
)

// Sink receives job events.
type Sink interface {
	PublishStatus(ctx context.Context, key string, event any) error
	PublishTranscript(ctx context.Context, key string, event any) error
}

// Fanout delivers every event to each sink and joins their errors.
type Fanout []Sink

func (f Fanout) PublishStatus(ctx context.Context, key string, event any) error {
	var errs []error
	for _, s := range f {
		if err := s.PublishStatus(ctx, key, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishTranscript(ctx context.Context, key string, event any) error {
	var errs []error
	for _, s := range f {
		if err := s.PublishTranscript(ctx, key, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
