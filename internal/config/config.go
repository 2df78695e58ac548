// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServiceConfig struct {
	Name        string
	Principal   string
	Environment string
}

type HTTPConfig struct {
	Port        string
	AppName     string
	Version     string
	APIPrefix   string
	CORSOrigins []string
}

type ObservabilityConfig struct {
	LogLevel     string
	LogFormat    string
	MetricsAddr  string
	GRPCPort     string
	OTLPEndpoint string
	SampleRate   float64
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type StorageConfig struct {
	Provider       string // local or s3
	LocalDir       string
	Bucket         string
	Endpoint       string
	ForcePathStyle bool
}

type STTConfig struct {
	Provider       string // mock, aws or google
	LanguageCode   string
	MaxSpeakers    int
	PollInterval   time.Duration
	DefaultSpeaker string
	// Google only.
	SampleRateHz  int
	AudioEncoding string
}

type TranscriptConfig struct {
	PauseThreshold time.Duration
	MaxUploadBytes int64
}

type MeetingConfig struct {
	Provider    string // mock or chime
	MediaRegion string
}

type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicStatus     string
	TopicTranscript string
	Principal       string
}

type DatabaseConfig struct {
	DSN                string
	LogLevel           string
	SlowQueryThreshold time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	JobTTL    time.Duration
}

type DocumentsConfig struct {
	Seed bool
}

// Config is the complete service configuration.
type Config struct {
	Service       ServiceConfig
	HTTP          HTTPConfig
	Observability ObservabilityConfig
	AWS           AWSConfig
	Storage       StorageConfig
	STT           STTConfig
	Transcript    TranscriptConfig
	Meeting       MeetingConfig
	Kafka         KafkaConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Documents     DocumentsConfig
}

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are given. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-nexus")

	return &Config{
		Service: ServiceConfig{
			Name:        envOrDefault("SERVICE_NAME", "nexus-support-service"),
			Principal:   principal,
			Environment: envOrDefault("ENV", "dev"),
		},
		HTTP: HTTPConfig{
			Port:      envOrDefault("HTTP_PORT", "8000"),
			AppName:   envOrDefault("APP_NAME", "NEXUS REST API"),
			Version:   envOrDefault("PROJECT_VERSION", "0.1.0"),
			APIPrefix: envOrDefault("API_V1_STR", "/api/v1"),
			CORSOrigins: envOrDefaultList("CORS_ORIGINS", []string{
				"http://localhost",
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}),
		},
		Observability: ObservabilityConfig{
			LogLevel:     envOrDefault("LOG_LEVEL", "info"),
			LogFormat:    envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr:  envOrDefault("METRICS_ADDR", ":9090"),
			GRPCPort:     envOrDefault("GRPC_PORT", "50051"),
			OTLPEndpoint: envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			SampleRate:   envOrDefaultFloat("OTEL_SAMPLE_RATE", 1.0),
		},
		AWS: AWSConfig{
			Region:          envOrDefault("AWS_REGION", "ap-southeast-1"),
			AccessKeyID:     envOrDefault("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: envOrDefault("AWS_SECRET_ACCESS_KEY", ""),
		},
		Storage: StorageConfig{
			Provider:       envOrDefault("STORAGE_PROVIDER", "local"),
			LocalDir:       envOrDefault("STORAGE_LOCAL_DIR", "./data"),
			Bucket:         envOrDefault("AWS_BUCKET_NAME", ""),
			Endpoint:       envOrDefault("S3_ENDPOINT", ""),
			ForcePathStyle: envOrDefaultBool("S3_FORCE_PATH_STYLE", false),
		},
		STT: STTConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			MaxSpeakers:    envOrDefaultInt("STT_MAX_SPEAKERS", 2),
			PollInterval:   envOrDefaultDuration("STT_POLL_INTERVAL", 5*time.Second),
			DefaultSpeaker: envOrDefault("STT_DEFAULT_SPEAKER", "spk_0"),
			SampleRateHz:   envOrDefaultInt("STT_SAMPLE_RATE_HZ", 8000),
			AudioEncoding:  envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
		},
		Transcript: TranscriptConfig{
			PauseThreshold: envOrDefaultDuration("TRANSCRIPT_PAUSE_THRESHOLD", time.Second),
			MaxUploadBytes: envOrDefaultInt64("MAX_UPLOAD_BYTES", 100*1024*1024),
		},
		Meeting: MeetingConfig{
			Provider:    envOrDefault("MEETING_PROVIDER", "mock"),
			MediaRegion: envOrDefault("MEETING_MEDIA_REGION", "ap-southeast-1"),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicStatus:     envOrDefault("KAFKA_TOPIC_STATUS", "nexus.transcription.status"),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "nexus.transcription.transcripts"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Database: DatabaseConfig{
			DSN:                envOrDefault("DATABASE_DSN", ""),
			LogLevel:           envOrDefault("DATABASE_LOG_LEVEL", "warn"),
			SlowQueryThreshold: envOrDefaultDuration("DATABASE_SLOW_QUERY", 200*time.Millisecond),
		},
		Redis: RedisConfig{
			Addr:      envOrDefault("REDIS_ADDR", ""),
			Password:  envOrDefault("REDIS_PASSWORD", ""),
			DB:        envOrDefaultInt("REDIS_DB", 0),
			KeyPrefix: envOrDefault("REDIS_KEY_PREFIX", "nexus"),
			JobTTL:    envOrDefaultDuration("REDIS_JOB_TTL", 0),
		},
		Documents: DocumentsConfig{
			Seed: envOrDefaultBool("SEED_DOCUMENTS", true),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma separated value, dropping empty items.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
