// Package http exposes the support API over HTTP with gin.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/events"
	"nexus-support-service/internal/service/document"
	"nexus-support-service/internal/service/meeting"
	"nexus-support-service/internal/service/transcription"
)

// Config holds the HTTP surface settings.
type Config struct {
	AppName     string
	Version     string
	APIPrefix   string
	CORSOrigins []string
	// MaxBodyBytes caps every request body. Zero disables the limit.
	MaxBodyBytes   int64
	PauseThreshold time.Duration
}

// Services are the domain services behind the routes.
type Services struct {
	Documents     *document.Service
	Transcription *transcription.Service
	Meetings      *meeting.Service
	// Events streams job updates over WebSocket when set.
	Events *events.Hub
}

// API holds the handlers.
type API struct {
	cfg           Config
	documents     *document.Service
	transcription *transcription.Service
	meetings      *meeting.Service
	events        *events.Hub
}

// NewRouter constructs the gin engine with middleware and all routes.
func NewRouter(cfg Config, svc Services) *gin.Engine {
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	engine := gin.New()
	engine.Use(RequestID())
	engine.Use(Recovery())
	engine.Use(RequestLogger())
	engine.Use(Metrics())
	engine.Use(CORS(cfg.CORSOrigins))
	engine.Use(MaxBodySize(cfg.MaxBodyBytes))
	engine.NoRoute(func(c *gin.Context) {
		respondError(c, apperrors.New(apperrors.ErrCodeNotFound, "route not found", http.StatusNotFound))
	})

	api := &API{
		cfg:           cfg,
		documents:     svc.Documents,
		transcription: svc.Transcription,
		meetings:      svc.Meetings,
		events:        svc.Events,
	}
	registerRoutes(engine, api)
	return engine
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/", api.handleRoot)
	r.GET("/hello", api.handleHello)

	v1 := r.Group(api.cfg.APIPrefix)
	v1.GET("/status", api.handleStatus)
	v1.POST("/transcripts/group", api.handleGroupTranscript)

	if api.documents != nil {
		docs := v1.Group("/documents")
		{
			docs.POST("", api.handleCreateDocument)
			docs.POST("/", api.handleCreateDocument)
			docs.GET("", api.handleListDocuments)
			docs.GET("/", api.handleListDocuments)
			docs.POST("/search", api.handleSearchDocuments)
			docs.POST("/summarize-text", api.handleSummarizeText)
			docs.POST("/suggest-response", api.handleSuggestResponse)
			docs.GET("/:doc_id", api.handleGetDocument)
			docs.PUT("/:doc_id", api.handleUpdateDocument)
			docs.DELETE("/:doc_id", api.handleDeleteDocument)
			docs.GET("/:doc_id/summarize", api.handleSummarizeDocument)
		}
	}

	if api.transcription != nil {
		tr := r.Group("/transcribe")
		{
			tr.GET("", api.handleTranscribeHealth)
			tr.GET("/", api.handleTranscribeHealth)
			tr.POST("", api.handleSubmitTranscription)
			tr.POST("/", api.handleSubmitTranscription)
			tr.GET("/transcription-status/:job_id", api.handleTranscriptionStatus)
			tr.DELETE("/transcription-status/:job_id", api.handleCancelTranscription)
			tr.GET("/transcription-status/:job_id/pdf", api.handleTranscriptPDF)
			if api.events != nil {
				tr.GET("/ws", api.handleTranscriptionEvents)
				tr.GET("/ws/:job_id", api.handleTranscriptionEvents)
			}
		}
	}

	if api.meetings != nil {
		call := r.Group("/call")
		{
			call.POST("/create-meeting", api.handleCreateMeeting)
			call.GET("/get-customer-join-data/:meeting_id", api.handleCustomerJoinData)
			call.GET("/meeting-info/:meeting_id", api.handleMeetingInfo)
		}
	}
}

func (a *API) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":           "Welcome to " + a.cfg.AppName + " - Version " + a.cfg.Version,
		"documentation_url": "/docs",
	})
}

func (a *API) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "NEXUS API v1 is up and running!"})
}

func (a *API) handleHello(c *gin.Context) {
	c.JSON(http.StatusOK, []string{"Hello Gemini"})
}
