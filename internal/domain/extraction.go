package domain

import "context"

// ExtractionInput carries the context handed to the disease extractor.
// BriefTitle and BriefSummary are consulted when ConditionText alone
// does not name a specific disease.
type ExtractionInput struct {
	ConditionText string
	BriefTitle    string
	BriefSummary  string
}

// DiseaseExtractor isolates the primary disease or condition name from
// free-text trial metadata. An empty result means no specific disease
// could be identified; callers treat both errors and empty results as
// "keep the raw text".
type DiseaseExtractor interface {
	ExtractDisease(ctx context.Context, in ExtractionInput) (string, error)
}

// HealthChecker is implemented by extractors that can verify provider
// availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
