package search

import (
	"context"

	"github.com/pipelinex/trialscope/internal/domain"
)

// StudyFetcher retrieves every raw study matching a query, following
// upstream pagination to completion.
type StudyFetcher interface {
	FetchAll(ctx context.Context, query string) ([]domain.Study, error)
}

// DiseaseExtractor isolates the primary disease name from trial
// metadata. Best effort: the pipeline treats errors and empty results
// as "keep the raw condition text".
type DiseaseExtractor interface {
	ExtractDisease(ctx context.Context, in domain.ExtractionInput) (string, error)
}
