package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(aws.Config{Region: "us-east-1"}, Config{}); err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestStorage_URI(t *testing.T) {
	s, err := New(aws.Config{Region: "us-east-1"}, Config{Bucket: "recordings"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.URI("audio-uploads/transcribe_abc.wav")
	if got != "s3://recordings/audio-uploads/transcribe_abc.wav" {
		t.Errorf("unexpected URI %s", got)
	}
	if s.Bucket() != "recordings" {
		t.Errorf("expected bucket recordings, got %s", s.Bucket())
	}
}

func TestNew_CustomEndpointUsesPathStyle(t *testing.T) {
	s, err := New(aws.Config{Region: "us-east-1"}, Config{Bucket: "b", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := s.client.Options()
	if !opts.UsePathStyle {
		t.Error("expected path-style addressing with a custom endpoint")
	}
	if aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("expected base endpoint http://localhost:9000, got %s", aws.ToString(opts.BaseEndpoint))
	}
}
