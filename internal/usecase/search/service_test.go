package search

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/domain"
)

// --- Mocks ---

type mockFetcher struct {
	studies []domain.Study
	err     error
	calls   int
}

func (m *mockFetcher) FetchAll(_ context.Context, _ string) ([]domain.Study, error) {
	m.calls++
	return m.studies, m.err
}

type mockExtractor struct {
	mu     sync.Mutex
	name   string
	err    error
	byCond func(string) string
	inputs []domain.ExtractionInput
}

func (m *mockExtractor) ExtractDisease(_ context.Context, in domain.ExtractionInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return "", m.err
	}
	if m.byCond != nil {
		return m.byCond(in.ConditionText), nil
	}
	return m.name, nil
}

func (m *mockExtractor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func studyWith(id, title, condition string) domain.Study {
	var s domain.Study
	s.ProtocolSection.Identification.NCTID = id
	s.ProtocolSection.Identification.BriefTitle = title
	if condition != "" {
		s.ProtocolSection.Conditions.Conditions = []string{condition}
	}
	return s
}

// --- Tests ---

func TestSearch_SinglePageScenario(t *testing.T) {
	fetcher := &mockFetcher{studies: []domain.Study{
		studyWith("NCT00000001", "Aspirin Trial", ""),
	}}
	svc := New(fetcher, zap.NewNop())

	trials, err := svc.Search(context.Background(), "aspirin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trials) != 1 {
		t.Fatalf("expected 1 trial, got %d", len(trials))
	}

	got := trials[0]
	if got.ID != "NCT00000001" {
		t.Errorf("id: got %q", got.ID)
	}
	if got.BriefTitle != "Aspirin Trial" {
		t.Errorf("briefTitle: got %q", got.BriefTitle)
	}
	if got.HasResults {
		t.Error("hasResults: got true, want false")
	}
	if got.URL != "https://clinicaltrials.gov/study/NCT00000001" {
		t.Errorf("url: got %q", got.URL)
	}
}

func TestSearch_EmptyResultIsNotAnError(t *testing.T) {
	svc := New(&mockFetcher{}, zap.NewNop())

	trials, err := svc.Search(context.Background(), "nonexistent-drug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trials) != 0 {
		t.Errorf("expected 0 trials, got %d", len(trials))
	}
}

func TestSearch_FetchErrorPropagates(t *testing.T) {
	upstream := domain.NewUpstreamError(500, map[string]any{"error": "rate limited"})
	svc := New(&mockFetcher{err: upstream}, zap.NewNop())

	_, err := svc.Search(context.Background(), "aspirin")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrUpstreamStatus) {
		t.Errorf("expected ErrUpstreamStatus, got %v", err)
	}

	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if want := map[string]any{"error": "rate limited"}; !reflect.DeepEqual(ue.RawData, want) {
		t.Errorf("rawData: got %v, want %v", ue.RawData, want)
	}
}

func TestSearch_EnrichmentReplacesCondition(t *testing.T) {
	fetcher := &mockFetcher{studies: []domain.Study{
		studyWith("NCT1", "Mpox Vaccine Study", "Mpox (Monkeypox), Vaccination, Safety"),
	}}
	extractor := &mockExtractor{name: "Mpox (Monkeypox)"}
	svc := New(fetcher, zap.NewNop()).WithExtractor(extractor, 0, 4)

	trials, err := svc.Search(context.Background(), "mpox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trials[0].Condition != "Mpox (Monkeypox)" {
		t.Errorf("condition: got %q", trials[0].Condition)
	}
	if extractor.callCount() != 1 {
		t.Errorf("extractor calls: got %d, want 1", extractor.callCount())
	}
	if in := extractor.inputs[0]; in.ConditionText != "Mpox (Monkeypox), Vaccination, Safety" {
		t.Errorf("extraction input condition: got %q", in.ConditionText)
	}
}

func TestSearch_EnrichmentFailureKeepsRawCondition(t *testing.T) {
	fetcher := &mockFetcher{studies: []domain.Study{
		studyWith("NCT1", "Trial", "Diabetes Mellitus"),
	}}
	extractor := &mockExtractor{err: errors.New("provider down")}
	svc := New(fetcher, zap.NewNop()).WithExtractor(extractor, 0, 4)

	trials, err := svc.Search(context.Background(), "diabetes")
	if err != nil {
		t.Fatalf("extraction failure must not fail the search: %v", err)
	}
	if trials[0].Condition != "Diabetes Mellitus" {
		t.Errorf("condition: got %q, want raw text", trials[0].Condition)
	}
}

func TestSearch_EmptyExtractionKeepsRawCondition(t *testing.T) {
	fetcher := &mockFetcher{studies: []domain.Study{
		studyWith("NCT1", "Trial", "Healthy Volunteers"),
	}}
	extractor := &mockExtractor{name: ""}
	svc := New(fetcher, zap.NewNop()).WithExtractor(extractor, 0, 4)

	trials, err := svc.Search(context.Background(), "volunteers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trials[0].Condition != "Healthy Volunteers" {
		t.Errorf("condition: got %q", trials[0].Condition)
	}
}

func TestSearch_NoConditionSkipsExtraction(t *testing.T) {
	fetcher := &mockFetcher{studies: []domain.Study{
		studyWith("NCT1", "Trial", ""),
	}}
	extractor := &mockExtractor{name: "Should Not Appear"}
	svc := New(fetcher, zap.NewNop()).WithExtractor(extractor, 0, 4)

	trials, err := svc.Search(context.Background(), "whatever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trials[0].Condition != "N/A" {
		t.Errorf("condition: got %q, want N/A", trials[0].Condition)
	}
	if extractor.callCount() != 0 {
		t.Errorf("extractor calls: got %d, want 0", extractor.callCount())
	}
}

func TestSearch_ConcurrentEnrichmentPreservesOrder(t *testing.T) {
	const n = 50
	studies := make([]domain.Study, 0, n)
	for i := 0; i < n; i++ {
		studies = append(studies, studyWith(
			fmt.Sprintf("NCT%04d", i),
			fmt.Sprintf("Trial %d", i),
			fmt.Sprintf("Condition %d", i),
		))
	}
	fetcher := &mockFetcher{studies: studies}
	extractor := &mockExtractor{byCond: func(raw string) string { return "X " + raw }}
	svc := New(fetcher, zap.NewNop()).WithExtractor(extractor, 0, 8)

	trials, err := svc.Search(context.Background(), "bulk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trials) != n {
		t.Fatalf("expected %d trials, got %d", n, len(trials))
	}
	for i, trial := range trials {
		if want := fmt.Sprintf("NCT%04d", i); trial.ID != want {
			t.Fatalf("trial %d out of order: got id %q, want %q", i, trial.ID, want)
		}
		if want := fmt.Sprintf("X Condition %d", i); trial.Condition != want {
			t.Fatalf("trial %d condition: got %q, want %q", i, trial.Condition, want)
		}
	}
}

func TestSearch_Idempotent(t *testing.T) {
	fetcher := &mockFetcher{studies: []domain.Study{
		studyWith("NCT1", "A", "Asthma"),
		studyWith("NCT2", "B", "COPD"),
	}}
	extractor := &mockExtractor{byCond: func(raw string) string { return raw }}
	svc := New(fetcher, zap.NewNop()).WithExtractor(extractor, 0, 2)

	first, err := svc.Search(context.Background(), "lung")
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.Search(context.Background(), "lung")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("searches differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
