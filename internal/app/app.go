// Package app wires configuration into the storage, provider and service
// graph and runs the HTTP, gRPC admin and observability servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	grpcapi "nexus-support-service/internal/api/grpc"
	"nexus-support-service/internal/awscfg"
	"nexus-support-service/internal/config"
	"nexus-support-service/internal/database"
	"nexus-support-service/internal/events"
	httpapi "nexus-support-service/internal/http"
	"nexus-support-service/internal/observability"
	"nexus-support-service/internal/observability/logging"
	"nexus-support-service/internal/observability/tracing"
	"nexus-support-service/internal/repository"
	"nexus-support-service/internal/repository/memory"
	redisrepo "nexus-support-service/internal/repository/redis"
	"nexus-support-service/internal/service/document"
	"nexus-support-service/internal/service/llm"
	"nexus-support-service/internal/service/meeting"
	"nexus-support-service/internal/service/stt"
	sttaws "nexus-support-service/internal/service/stt/aws"
	sttgoogle "nexus-support-service/internal/service/stt/google"
	sttmock "nexus-support-service/internal/service/stt/mock"
	"nexus-support-service/internal/service/transcription"
	"nexus-support-service/internal/storage"
	"nexus-support-service/internal/storage/local"
	"nexus-support-service/internal/storage/s3"
)

const shutdownTimeout = 15 * time.Second

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Storage       storage.Storage
	Publisher     *events.Publisher
	Hub           *events.Hub
	Documents     *document.Service
	Transcription *transcription.Service
	Meetings      *meeting.Service
	Poller        *transcription.Poller

	awsCfg  *aws.Config
	redis   *goredis.Client
	db      *gorm.DB
	closers []func(context.Context) error
}

// New constructs the application. On error, everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config) (_ *Application, err error) {
	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.HTTP.Version,
		Environment:    cfg.Service.Environment,
		Endpoint:       cfg.Observability.OTLPEndpoint,
		Insecure:       true,
		SampleRate:     cfg.Observability.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	if a.Storage, err = a.newStorage(ctx); err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		a.redis, err = redisrepo.NewClient(ctx, redisrepo.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		rdb := a.redis
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	}

	a.Publisher = events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicStatus:     cfg.Kafka.TopicStatus,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		Principal:       cfg.Kafka.Principal,
	})
	publisher := a.Publisher
	a.closers = append(a.closers, func(context.Context) error { return publisher.Close() })

	a.Hub = events.NewHub(httpapi.AllowOrigin(cfg.HTTP.CORSOrigins))
	hub := a.Hub
	a.closers = append(a.closers, func(context.Context) error { hub.Close(); return nil })

	provider, err := a.newSTTProvider(ctx)
	if err != nil {
		return nil, err
	}
	a.Transcription = transcription.NewService(provider, a.Storage,
		newRepository[transcription.Job](a.redis, cfg.Redis.KeyPrefix+":jobs", cfg.Redis.JobTTL),
		events.Fanout{a.Publisher, a.Hub},
		transcription.Config{
			LanguageCode:   cfg.STT.LanguageCode,
			MaxSpeakers:    cfg.STT.MaxSpeakers,
			MaxUploadBytes: cfg.Transcript.MaxUploadBytes,
			PauseThreshold: cfg.Transcript.PauseThreshold,
		})
	a.Poller = transcription.NewPoller(a.Transcription, cfg.STT.PollInterval)

	docStore, err := a.newDocumentStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Documents = document.NewService(docStore, llm.NewPlaceholder())
	if cfg.Documents.Seed {
		if _, err := a.Documents.Seed(ctx); err != nil {
			return nil, fmt.Errorf("seed documents: %w", err)
		}
	}

	meetingProvider, err := a.newMeetingProvider(ctx)
	if err != nil {
		return nil, err
	}
	a.Meetings = meeting.NewService(meetingProvider,
		newRepository[meeting.Record](a.redis, cfg.Redis.KeyPrefix+":meetings", 0),
		cfg.Meeting.MediaRegion)

	a.Logger.Info().
		Str("storage", cfg.Storage.Provider).
		Str("sttProvider", provider.Name()).
		Str("meetingProvider", meetingProvider.Name()).
		Bool("redis", a.redis != nil).
		Bool("database", a.db != nil).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("NEXUS support service application created")
	return a, nil
}

func newRepository[T any](rdb *goredis.Client, prefix string, ttl time.Duration) repository.Repository[T] {
	if rdb == nil {
		return memory.New[T]()
	}
	return redisrepo.New[T](rdb, prefix, ttl)
}

func (a *Application) loadAWS(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	c, err := awscfg.Load(ctx, awscfg.Config{
		Region:          a.Cfg.AWS.Region,
		AccessKeyID:     a.Cfg.AWS.AccessKeyID,
		SecretAccessKey: a.Cfg.AWS.SecretAccessKey,
	})
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg = &c
	return c, nil
}

func (a *Application) newStorage(ctx context.Context) (storage.Storage, error) {
	switch a.Cfg.Storage.Provider {
	case "", "local":
		return local.New(a.Cfg.Storage.LocalDir)
	case "s3":
		awsCfg, err := a.loadAWS(ctx)
		if err != nil {
			return nil, err
		}
		return s3.New(awsCfg, s3.Config{
			Bucket:         a.Cfg.Storage.Bucket,
			Endpoint:       a.Cfg.Storage.Endpoint,
			ForcePathStyle: a.Cfg.Storage.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", a.Cfg.Storage.Provider)
	}
}

func (a *Application) newSTTProvider(ctx context.Context) (stt.Provider, error) {
	cfg := a.Cfg.STT
	switch cfg.Provider {
	case "", "mock":
		return sttmock.New(), nil
	case "aws":
		if a.Cfg.Storage.Provider != "s3" {
			return nil, errors.New("stt provider aws requires STORAGE_PROVIDER=s3")
		}
		awsCfg, err := a.loadAWS(ctx)
		if err != nil {
			return nil, err
		}
		return sttaws.New(awsCfg, a.Storage, sttaws.Config{
			OutputBucket:   a.Cfg.Storage.Bucket,
			DefaultSpeaker: cfg.DefaultSpeaker,
		})
	case "google":
		p, err := sttgoogle.New(ctx, a.Storage, sttgoogle.Config{
			LanguageCode:   cfg.LanguageCode,
			SampleRateHz:   int32(cfg.SampleRateHz),
			AudioEncoding:  cfg.AudioEncoding,
			DefaultSpeaker: cfg.DefaultSpeaker,
		})
		if err != nil {
			return nil, fmt.Errorf("google stt: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		return p, nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Provider)
	}
}

func (a *Application) newMeetingProvider(ctx context.Context) (meeting.Provider, error) {
	switch a.Cfg.Meeting.Provider {
	case "", "mock":
		return meeting.NewMockProvider(), nil
	case "chime":
		awsCfg, err := a.loadAWS(ctx)
		if err != nil {
			return nil, err
		}
		return meeting.NewChimeProvider(awsCfg), nil
	default:
		return nil, fmt.Errorf("unknown meeting provider %q", a.Cfg.Meeting.Provider)
	}
}

func (a *Application) newDocumentStore(ctx context.Context) (document.Store, error) {
	if a.Cfg.Database.DSN == "" {
		return document.NewRepositoryStore(
			newRepository[document.Document](a.redis, a.Cfg.Redis.KeyPrefix+":documents", 0)), nil
	}
	db, err := database.Open(ctx, database.Config{
		DSN:                a.Cfg.Database.DSN,
		LogLevel:           a.Cfg.Database.LogLevel,
		SlowQueryThreshold: a.Cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) error { return database.Close(db) })
	return document.NewGormStore(db)
}

// Router builds the HTTP handler for the configured services.
func (a *Application) Router() http.Handler {
	return httpapi.NewRouter(httpapi.Config{
		AppName:        a.Cfg.HTTP.AppName,
		Version:        a.Cfg.HTTP.Version,
		APIPrefix:      a.Cfg.HTTP.APIPrefix,
		CORSOrigins:    a.Cfg.HTTP.CORSOrigins,
		MaxBodyBytes:   a.Cfg.Transcript.MaxUploadBytes + 1<<20,
		PauseThreshold: a.Cfg.Transcript.PauseThreshold,
	}, httpapi.Services{
		Documents:     a.Documents,
		Transcription: a.Transcription,
		Meetings:      a.Meetings,
		Events:        a.Hub,
	})
}

// Ready pings the backing stores.
func (a *Application) Ready(ctx context.Context) error {
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

// Run serves until ctx is cancelled or a server fails, then shuts down and
// releases every resource. Listener errors are returned before anything starts.
func (a *Application) Run(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Str("httpPort", a.Cfg.HTTP.Port).
		Str("grpcPort", a.Cfg.Observability.GRPCPort).
		Msg("NEXUS support service starting")

	grpcLis, err := net.Listen("tcp", ":"+a.Cfg.Observability.GRPCPort)
	if err != nil {
		return a.abort(fmt.Errorf("grpc listen: %w", err))
	}
	httpLis, err := net.Listen("tcp", ":"+a.Cfg.HTTP.Port)
	if err != nil {
		_ = grpcLis.Close()
		return a.abort(fmt.Errorf("http listen: %w", err))
	}

	errCh := make(chan error, 2)

	obs := observability.NewServer(a.Cfg.Observability.MetricsAddr, a.Ready)
	obs.Start()

	admin := grpcapi.New("transcription", "documents", "meetings")
	go func() {
		if err := admin.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	httpSrv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		a.Logger.Info().Str("addr", httpLis.Addr().String()).Msg("HTTP API server started")
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		a.Poller.Run(pollCtx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.Logger.Error().Err(runErr).Msg("Server failed")
	}

	a.Logger.Info().Msg("NEXUS support service shutting down")
	admin.SetServing(false)
	stopPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn().Err(err).Msg("HTTP API server shutdown")
	}
	admin.Shutdown()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn().Err(err).Msg("Observability server shutdown")
	}

	// the poller publishes to the sinks closed below
	select {
	case <-pollDone:
	case <-shutdownCtx.Done():
		a.Logger.Warn().Msg("Transcription poller did not stop before the shutdown deadline")
	}

	if err := a.Close(shutdownCtx); err != nil {
		a.Logger.Warn().Err(err).Msg("Resource cleanup")
	}
	return runErr
}

// abort releases resources after a failed start and returns err.
func (a *Application) abort(err error) error {
	a.Logger.Error().Err(err).Msg("Startup failed")
	if cerr := a.Close(context.Background()); cerr != nil {
		a.Logger.Warn().Err(cerr).Msg("Resource cleanup")
	}
	return err
}

// Close releases resources in reverse order of acquisition.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
