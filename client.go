// Package trialscope exposes the trial search pipeline as an embedded
// library, for callers that want in-process search without running the
// HTTP server.
package trialscope

import (
	"context"

	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/domain"
	"github.com/pipelinex/trialscope/internal/transport/ctgov"
	searchuc "github.com/pipelinex/trialscope/internal/usecase/search"
)

// Trial is the normalized study shape returned by Search.
type Trial = domain.Trial

// Outcome is a flattened outcome measure tagged Primary or Secondary.
type Outcome = domain.Outcome

// Sentinel errors surfaced by Search.
var (
	ErrQueryRequired  = domain.ErrQueryRequired
	ErrUpstreamStatus = domain.ErrUpstreamStatus
	ErrUpstreamFormat = domain.ErrUpstreamFormat
	ErrTooManyPages   = domain.ErrTooManyPages
)

// Internal interface for test substitution.
type searchUseCase interface {
	Search(ctx context.Context, query string) ([]domain.Trial, error)
}

// Client is the trialscope library entry point.
type Client struct {
	searchSvc searchUseCase
}

// New creates a Client wired against the live ClinicalTrials.gov API.
func New(opts ...Option) *Client {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher := ctgov.NewClient(&ctgov.Config{
		BaseURL:        cfg.baseURL,
		PageSize:       cfg.pageSize,
		MaxPages:       cfg.maxPages,
		RequestTimeout: cfg.requestTimeout,
		MaxRetries:     cfg.maxRetries,
		UserAgent:      cfg.userAgent,
		Logger:         logger,
	})

	svc := searchuc.New(fetcher, logger)
	if cfg.extractor != nil {
		svc.WithExtractor(cfg.extractor, cfg.extractTimeout, cfg.extractConcurrent)
	}

	return &Client{searchSvc: svc}
}

// Search fetches, normalizes, and enriches all studies matching query.
// Results arrive in upstream pagination order; zero matches yield an
// empty slice.
func (c *Client) Search(ctx context.Context, query string) ([]Trial, error) {
	if query == "" {
		return nil, ErrQueryRequired
	}
	return c.searchSvc.Search(ctx, query)
}
