package trialscope

import (
	"time"

	"go.uber.org/zap"

	openaiExt "github.com/pipelinex/trialscope/internal/transport/openai"
	searchuc "github.com/pipelinex/trialscope/internal/usecase/search"
)

type clientConfig struct {
	baseURL        string
	pageSize       int
	maxPages       int
	requestTimeout time.Duration
	maxRetries     int
	userAgent      string

	extractor         searchuc.DiseaseExtractor
	extractTimeout    time.Duration
	extractConcurrent int

	logger *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		baseURL:           "https://clinicaltrials.gov/api/v2",
		pageSize:          1000,
		maxPages:          50,
		requestTimeout:    30 * time.Second,
		maxRetries:        3,
		userAgent:         "trialscope",
		extractTimeout:    20 * time.Second,
		extractConcurrent: 8,
	}
}

// Option configures a Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(cfg *clientConfig) { f(cfg) }

// WithBaseURL overrides the ClinicalTrials.gov endpoint (tests point
// this at a local server).
func WithBaseURL(url string) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.baseURL = url })
}

// WithMaxPages bounds the pagination loop.
func WithMaxPages(n int) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.maxPages = n })
}

// WithRequestTimeout bounds each page fetch.
func WithRequestTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.requestTimeout = d })
}

// WithUserAgent sets the User-Agent sent upstream.
func WithUserAgent(ua string) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.userAgent = ua })
}

// WithLogger sets the logger; default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.logger = logger })
}

// WithExtractor enables condition enrichment with a custom extractor.
func WithExtractor(extractor searchuc.DiseaseExtractor) Option {
	return optionFunc(func(cfg *clientConfig) { cfg.extractor = extractor })
}

// WithOpenAIExtraction enables condition enrichment via an
// OpenAI-compatible chat API.
func WithOpenAIExtraction(apiKey, baseURL, model string) Option {
	return optionFunc(func(cfg *clientConfig) {
		logger := cfg.logger
		if logger == nil {
			logger = zap.NewNop()
		}
		cfg.extractor = openaiExt.NewExtractor(&openaiExt.Config{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Model:   model,
			Logger:  logger,
		})
	})
}
