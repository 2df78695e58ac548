package document

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/observability/logging"
	"nexus-support-service/internal/observability/metrics"
	"nexus-support-service/internal/observability/tracing"
	"nexus-support-service/internal/repository"
	"nexus-support-service/internal/schema"
	"nexus-support-service/internal/service/llm"
)

// Service implements document operations.
type Service struct {
	store   Store
	llm     llm.Provider
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates a document service.
func NewService(store Store, provider llm.Provider) *Service {
	return &Service{
		store:   store,
		llm:     provider,
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("documents"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) storeError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Document", id)
	}
	s.log.Error().Err(err).Str("documentId", id).Msg("Document store error")
	return apperrors.DatabaseError(err)
}

// Create stores a new document with a generated id and timestamps.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Document, error) {
	if err := schema.Validate(req); err != nil {
		return nil, schema.Invalid(err)
	}

	now := s.now()
	doc := &Document{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   *req.Content,
		Source:    req.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, s.storeError(err, doc.ID)
	}

	s.metrics.RecordDocumentOp("create")
	s.log.Info().Str("documentId", doc.ID).Str("title", doc.Title).Msg("Document created")
	return doc, nil
}

// Get returns a document by id.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id)
	}
	s.metrics.RecordDocumentOp("get")
	return doc, nil
}

// List pages through documents, newest first. A zero limit means the default.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Document, error) {
	if req.Limit == 0 {
		req.Limit = DefaultListLimit
	}
	if err := schema.Validate(req); err != nil {
		return nil, schema.Invalid(err)
	}

	docs, err := s.store.List(ctx, req.Skip, req.Limit)
	if err != nil {
		return nil, s.storeError(err, "")
	}
	s.metrics.RecordDocumentOp("list")
	return docs, nil
}

// Update applies the supplied fields and bumps updated_at.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Document, error) {
	if err := schema.Validate(req); err != nil {
		return nil, schema.Invalid(err)
	}

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id)
	}
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	if req.Source != nil {
		doc.Source = req.Source
	}
	doc.UpdatedAt = s.now()

	if err := s.store.Update(ctx, doc); err != nil {
		return nil, s.storeError(err, id)
	}

	s.metrics.RecordDocumentOp("update")
	s.log.Info().Str("documentId", id).Msg("Document updated")
	return doc, nil
}

// Delete removes a document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError(err, id)
	}
	s.metrics.RecordDocumentOp("delete")
	s.log.Info().Str("documentId", id).Msg("Document deleted")
	return nil
}

// searchScanLimit bounds the documents scanned by a search.
const searchScanLimit = 1000

// Search ranks documents by case-insensitive substring matches. A title hit
// scores 0.75, a content-only hit 0.5, and a hit in both adds 0.1.
func (s *Service) Search(ctx context.Context, req SearchRequest) (_ *SearchResponse, err error) {
	ctx, span := tracing.Start(ctx, "documents.search", attribute.String("search.query", req.Query))
	defer func() { tracing.End(span, err) }()

	if err := schema.Validate(req); err != nil {
		return nil, schema.Invalid(err)
	}
	topK := DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	docs, err := s.store.List(ctx, 0, searchScanLimit)
	if err != nil {
		return nil, s.storeError(err, "")
	}

	q := strings.ToLower(req.Query)
	retrieved := s.now()
	results := make([]SearchResult, 0)
	for _, d := range docs {
		inTitle := strings.Contains(strings.ToLower(d.Title), q)
		inContent := strings.Contains(strings.ToLower(d.Content), q)
		if !inTitle && !inContent {
			continue
		}
		score := 0.5
		if inTitle {
			score = 0.75
		}
		if inContent {
			score += 0.1
		}
		results = append(results, SearchResult{
			ID:             d.ID,
			Title:          d.Title,
			ContentSnippet: snippet(d.Content),
			Source:         d.Source,
			Score:          min(score, 1.0),
			RetrievedAt:    retrieved,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	s.metrics.RecordDocumentOp("search")
	return &SearchResponse{QueryReceived: req.Query, Results: results}, nil
}

func snippet(content string) string {
	r := []rune(content)
	if len(r) <= snippetLength {
		return content
	}
	return string(r[:snippetLength]) + "..."
}

// Summarize summarizes the content of a stored document.
func (s *Service) Summarize(ctx context.Context, id string) (string, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return "", s.storeError(err, id)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return "", apperrors.InvalidInput("content", "Document content is empty, cannot summarize.")
	}
	return s.SummarizeText(ctx, doc.Content)
}

// SummarizeText summarizes free text.
func (s *Service) SummarizeText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperrors.InvalidInput("text", "Text content cannot be empty.")
	}
	summary, err := s.llm.Summarize(ctx, text, llm.DefaultSummaryLength)
	if err != nil {
		return "", apperrors.ExternalService("llm", err)
	}
	s.metrics.RecordDocumentOp("summarize")
	return summary, nil
}

// SuggestResponse proposes an agent reply to a customer query.
func (s *Service) SuggestResponse(ctx context.Context, query string, contexts []string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", apperrors.InvalidInput("customer_query", "Customer query cannot be empty.")
	}
	if contexts == nil {
		contexts = []string{}
	}
	suggestion, err := s.llm.SuggestResponse(ctx, query, contexts)
	if err != nil {
		return "", apperrors.ExternalService("llm", err)
	}
	s.metrics.RecordDocumentOp("suggest")
	return suggestion, nil
}
