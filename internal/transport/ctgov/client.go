// Package ctgov is the ClinicalTrials.gov v2 API client.
package ctgov

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/domain"
	"github.com/pipelinex/trialscope/internal/httputil"
	"github.com/pipelinex/trialscope/internal/metrics"
)

// projectedFields is the explicit allow-list requested from the
// upstream, chosen to keep page payloads small. Adding a field here is
// the only change needed to surface it in the raw record.
var projectedFields = strings.Join([]string{
	"NCTId", "BriefTitle", "OfficialTitle", "Condition", "Phase",
	"OverallStatus", "StartDate", "CompletionDate", "PrimaryCompletionDate",
	"EnrollmentCount", "StudyType", "LeadSponsorName", "CollaboratorName",
	"LocationCountry", "LocationCity", "LocationFacility", "EligibilityCriteria",
	"MinimumAge", "MaximumAge", "Gender", "HealthyVolunteers", "BriefSummary",
	"DetailedDescription", "InterventionType", "InterventionName",
	"LastUpdatePostDate", "WhyStopped", "PrimaryOutcome", "SecondaryOutcome",
	"HasResults",
}, ",")

// Config holds the client settings.
type Config struct {
	BaseURL        string
	PageSize       int
	MaxPages       int
	RequestTimeout time.Duration
	MaxRetries     int
	UserAgent      string
	Logger         *zap.Logger
}

// Client fetches studies from the ClinicalTrials.gov v2 API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	maxPages   int
	timeout    time.Duration
	maxRetries int
	userAgent  string
	logger     *zap.Logger
}

// NewClient creates a ClinicalTrials.gov client.
func NewClient(cfg *Config) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		pageSize:   cfg.PageSize,
		maxPages:   cfg.MaxPages,
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
		userAgent:  cfg.UserAgent,
		logger:     cfg.Logger,
	}
}

// page is the upstream response envelope.
type page struct {
	Studies       []domain.Study `json:"studies"`
	NextPageToken string         `json:"nextPageToken"`
}

// FetchAll retrieves every study matching query, following pagination
// tokens until the upstream stops returning one. Pages are fetched
// strictly sequentially because each request depends on the prior
// response's token. On any page-level failure the whole fetch aborts:
// a partially paginated result set would be misleadingly incomplete.
func (c *Client) FetchAll(ctx context.Context, query string) ([]domain.Study, error) {
	var all []domain.Study
	token := ""

	for pageNum := 1; ; pageNum++ {
		if pageNum > c.maxPages {
			return nil, fmt.Errorf("%w: fetched %d pages for query %q", domain.ErrTooManyPages, c.maxPages, query)
		}

		p, err := c.fetchPage(ctx, query, token)
		if err != nil {
			return nil, err
		}

		all = append(all, p.Studies...)
		metrics.StudiesFetchedTotal.Add(float64(len(p.Studies)))
		c.logger.Debug("fetched studies page",
			zap.Int("page", pageNum),
			zap.Int("page_studies", len(p.Studies)),
			zap.Int("total_studies", len(all)),
		)

		if p.NextPageToken == "" {
			return all, nil
		}
		token = p.NextPageToken
	}
}

func (c *Client) fetchPage(ctx context.Context, query, pageToken string) (page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{
		"format":     {"json"},
		"query.term": {query},
		"fields":     {projectedFields},
		"pageSize":   {strconv.Itoa(c.pageSize)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	reqURL := c.baseURL + "/studies?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("creating studies request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		metrics.UpstreamPagesTotal.WithLabelValues("error").Inc()
		return page{}, fmt.Errorf("studies request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.UpstreamPageDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.UpstreamPagesTotal.WithLabelValues("error").Inc()
		return page{}, c.statusError(resp)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		metrics.UpstreamPagesTotal.WithLabelValues("error").Inc()
		c.logger.Error("non-JSON response from clinicaltrials.gov", zap.String("content_type", ct))
		return page{}, domain.ErrUpstreamFormat
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		metrics.UpstreamPagesTotal.WithLabelValues("error").Inc()
		return page{}, fmt.Errorf("%w: decoding studies page: %s", domain.ErrUpstreamFormat, err)
	}

	metrics.UpstreamPagesTotal.WithLabelValues("success").Inc()
	return p, nil
}

// statusError builds an UpstreamError from a non-success response. The
// body is parsed as JSON when possible so its diagnostic content can be
// relayed to the caller; otherwise the raw text is wrapped.
func (c *Client) statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		body = nil
	}

	c.logger.Error("clinicaltrials.gov returned non-success status",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", body),
	)

	var rawData any
	if err := json.Unmarshal(body, &rawData); err != nil {
		rawData = map[string]string{
			"message": "API returned non-JSON error: " + string(body),
		}
	}

	return domain.NewUpstreamError(resp.StatusCode, rawData)
}
