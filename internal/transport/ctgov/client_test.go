package ctgov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/domain"
	"github.com/pipelinex/trialscope/internal/httputil"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(&Config{
		BaseURL:        baseURL,
		PageSize:       1000,
		MaxPages:       10,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
		UserAgent:      "trialscope-test",
		Logger:         zap.NewNop(),
	})
}

func studyJSON(id string) string {
	return fmt.Sprintf(`{"protocolSection":{"identificationModule":{"nctId":%q}}}`, id)
}

func TestFetchAll_SinglePage(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"studies":[%s]}`, studyJSON("NCT00000001"))
	}))
	defer srv.Close()

	studies, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(studies) != 1 {
		t.Fatalf("expected 1 study, got %d", len(studies))
	}
	if got := studies[0].ProtocolSection.Identification.NCTID; got != "NCT00000001" {
		t.Errorf("nctId: got %q", got)
	}

	for _, want := range []string{
		"format=json",
		"query.term=aspirin",
		"pageSize=1000",
		"fields=",
		"NCTId",
	} {
		if !strings.Contains(gotURL, want) {
			t.Errorf("request URL missing %q: %s", want, gotURL)
		}
	}
	if strings.Contains(gotURL, "pageToken") {
		t.Errorf("first page must not carry a pageToken: %s", gotURL)
	}
}

func TestFetchAll_FollowsPaginationTokens(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("pageToken")
		requests = append(requests, token)
		w.Header().Set("Content-Type", "application/json")

		switch token {
		case "":
			_, _ = fmt.Fprintf(w, `{"studies":[%s],"nextPageToken":"t2"}`, studyJSON("NCT1"))
		case "t2":
			_, _ = fmt.Fprintf(w, `{"studies":[%s],"nextPageToken":"t3"}`, studyJSON("NCT2"))
		case "t3":
			_, _ = fmt.Fprintf(w, `{"studies":[%s]}`, studyJSON("NCT3"))
		default:
			t.Errorf("unexpected pageToken %q", token)
		}
	}))
	defer srv.Close()

	studies, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []string{"", "t2", "t3"}; !reflect.DeepEqual(requests, want) {
		t.Errorf("request tokens: got %v, want %v", requests, want)
	}

	var ids []string
	for _, s := range studies {
		ids = append(ids, s.ProtocolSection.Identification.NCTID)
	}
	if want := []string{"NCT1", "NCT2", "NCT3"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("study order: got %v, want %v", ids, want)
	}
}

func TestFetchAll_PageLimitAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Always hand out another token.
		_, _ = fmt.Fprintf(w, `{"studies":[%s],"nextPageToken":"again"}`, studyJSON("NCT1"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	c.maxPages = 3

	_, err := c.FetchAll(context.Background(), "aspirin")
	if !errors.Is(err, domain.ErrTooManyPages) {
		t.Fatalf("expected ErrTooManyPages, got %v", err)
	}
}

func TestFetchAll_ErrorStatusCarriesParsedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if err == nil {
		t.Fatal("expected error")
	}

	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if ue.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d", ue.StatusCode)
	}
	if want := map[string]any{"error": "rate limited"}; !reflect.DeepEqual(ue.RawData, want) {
		t.Errorf("rawData: got %v, want %v", ue.RawData, want)
	}
}

func TestFetchAll_ErrorStatusWrapsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")

	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	raw, ok := ue.RawData.(map[string]string)
	if !ok {
		t.Fatalf("rawData: got %T", ue.RawData)
	}
	if !strings.Contains(raw["message"], "API returned non-JSON error") {
		t.Errorf("rawData message: got %q", raw["message"])
	}
}

func TestFetchAll_NonJSONSuccessIsFormatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance page</html>"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if !errors.Is(err, domain.ErrUpstreamFormat) {
		t.Fatalf("expected ErrUpstreamFormat, got %v", err)
	}

	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		t.Error("format error must not carry rawData")
	}
}

func TestFetchAll_MalformedJSONIsFormatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"studies": [`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if !errors.Is(err, domain.ErrUpstreamFormat) {
		t.Fatalf("expected ErrUpstreamFormat, got %v", err)
	}
}

func TestFetchAll_RetriesOn429(t *testing.T) {
	oldDelay := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	defer func() { httputil.RetryBaseDelay = oldDelay }()

	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"studies":[%s]}`, studyJSON("NCT1"))
	}))
	defer srv.Close()

	studies, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts: got %d, want 2", attempts)
	}
	if len(studies) != 1 {
		t.Errorf("studies: got %d, want 1", len(studies))
	}
}

func TestFetchAll_ResultsSectionSurvivesDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"studies":[{"protocolSection":{"identificationModule":{"nctId":"NCT1"}},"resultsSection":{}}]}`))
	}))
	defer srv.Close()

	studies, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !studies[0].HasResults() {
		t.Error("hasResults: got false, want true")
	}
}

func TestFetchAll_TransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	_, err := testClient(t, srv.URL).FetchAll(context.Background(), "aspirin")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, domain.ErrUpstreamStatus) || errors.Is(err, domain.ErrUpstreamFormat) {
		t.Errorf("transport error must stay generic, got %v", err)
	}
}

func TestProjectedFields_RoundTrip(t *testing.T) {
	// The projection list is a wire contract; a typo silently drops a field.
	for _, field := range []string{"NCTId", "BriefTitle", "HasResults", "PrimaryOutcome", "SecondaryOutcome"} {
		if !strings.Contains(projectedFields, field) {
			t.Errorf("projection missing %q", field)
		}
	}
	if strings.Contains(projectedFields, " ") {
		t.Error("projection must be comma-joined without spaces")
	}
	var check any
	if err := json.Unmarshal([]byte(`"`+projectedFields+`"`), &check); err != nil {
		t.Fatalf("projection not URL-safe: %v", err)
	}
}
