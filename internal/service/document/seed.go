package document

import "context"

func strPtr(s string) *string { return &s }

// SampleDocuments are loaded into an empty store by Seed.
var SampleDocuments = []CreateRequest{
	{Title: "FastAPI Introduction", Content: strPtr("FastAPI is a modern, fast web framework."), Source: strPtr("FastAPI Docs")},
	{Title: "Next.js Basics", Content: strPtr("Next.js is a React framework for production."), Source: strPtr("Next.js Blog")},
	{Title: "REST API Design", Content: strPtr("Principles of designing good RESTful APIs."), Source: strPtr("Web Standards")},
}

// Seed creates the sample documents when the store is empty and returns how
// many were created.
func (s *Service) Seed(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, s.storeError(err, "")
	}
	if n > 0 {
		return 0, nil
	}

	for i, req := range SampleDocuments {
		if _, err := s.Create(ctx, req); err != nil {
			return i, err
		}
	}
	s.log.Info().Int("count", len(SampleDocuments)).Msg("Seeded sample documents")
	return len(SampleDocuments), nil
}
