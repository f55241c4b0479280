// Package search implements the trial search pipeline: paginated
// upstream fetch, record normalization, and best-effort condition
// enrichment.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pipelinex/trialscope/internal/domain"
)

const defaultMaxConcurrent = 8

// Service runs the trial search pipeline. A nil extractor disables
// enrichment and the raw condition text passes through unchanged.
type Service struct {
	fetcher        StudyFetcher
	extractor      DiseaseExtractor
	extractTimeout time.Duration
	maxConcurrent  int
	logger         *zap.Logger
}

// New creates a search service without enrichment.
func New(fetcher StudyFetcher, logger *zap.Logger) *Service {
	return &Service{
		fetcher:       fetcher,
		maxConcurrent: defaultMaxConcurrent,
		logger:        logger,
	}
}

// WithExtractor enables condition enrichment. timeout bounds each
// extraction call; maxConcurrent bounds how many run at once.
func (s *Service) WithExtractor(extractor DiseaseExtractor, timeout time.Duration, maxConcurrent int) *Service {
	s.extractor = extractor
	s.extractTimeout = timeout
	if maxConcurrent > 0 {
		s.maxConcurrent = maxConcurrent
	}
	return s
}

// Search fetches all studies matching query, normalizes them, and
// enriches each record's condition field. Records are processed
// concurrently but the result order is pagination-arrival order,
// paired back by index. Zero matches yield an empty slice, not an
// error. Any page-level fetch failure aborts the whole search.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Trial, error) {
	studies, err := s.fetcher.FetchAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch studies: %w", err)
	}

	s.logger.Info("fetched studies",
		zap.String("query", query),
		zap.Int("count", len(studies)),
	)

	trials := make([]domain.Trial, len(studies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i := range studies {
		i := i
		g.Go(func() error {
			trial := normalize(&studies[i])
			s.enrich(gctx, &trial)
			trials[i] = trial
			return nil
		})
	}
	// Enrichment failures degrade per record and never surface here.
	_ = g.Wait()

	return trials, nil
}

// enrich replaces the raw comma-joined condition text with the
// extracted disease name. Failures and empty extractions keep the raw
// text; nothing here may abort the overall search.
func (s *Service) enrich(ctx context.Context, trial *domain.Trial) {
	if s.extractor == nil || trial.Condition == valueMissing {
		return
	}

	if s.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.extractTimeout)
		defer cancel()
	}

	name, err := s.extractor.ExtractDisease(ctx, domain.ExtractionInput{
		ConditionText: trial.Condition,
		BriefTitle:    trial.BriefTitle,
		BriefSummary:  trial.BriefSummary,
	})
	if err != nil {
		s.logger.Warn("disease extraction failed, keeping raw condition",
			zap.String("id", trial.ID),
			zap.String("condition", trial.Condition),
			zap.Error(err),
		)
		return
	}
	if name != "" {
		trial.Condition = name
	}
}
