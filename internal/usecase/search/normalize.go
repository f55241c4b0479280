package search

import (
	"strings"

	"github.com/pipelinex/trialscope/internal/domain"
)

// valueMissing is the placeholder for required display fields the
// upstream left empty.
const valueMissing = "N/A"

// normalize flattens a raw study into the Trial shape. Missing sections
// degrade to defaults; every list-valued field is deduplicated and nil
// when empty. The condition field still holds the raw comma-joined text
// at this point; enrichment replaces it separately.
func normalize(study *domain.Study) domain.Trial {
	proto := &study.ProtocolSection

	id := proto.Identification.NCTID
	if id == "" {
		id = valueMissing
	}

	var countries, cities, facilities []string
	for _, loc := range proto.ContactsLocations.Locations {
		countries = append(countries, loc.Country)
		cities = append(cities, loc.City)
		facilities = append(facilities, loc.Facility)
	}

	var collaborators []string
	for _, c := range proto.SponsorCollaborators.Collaborators {
		collaborators = append(collaborators, c.Name)
	}

	var interventionTypes, interventionNames []string
	for _, iv := range proto.ArmsInterventions.Interventions {
		interventionTypes = append(interventionTypes, iv.Type)
		interventionNames = append(interventionNames, iv.Name)
	}

	var leadSponsor *string
	if proto.SponsorCollaborators.LeadSponsor != nil {
		leadSponsor = optional(proto.SponsorCollaborators.LeadSponsor.Name)
	}

	return domain.Trial{
		ID:            id,
		BriefTitle:    proto.Identification.BriefTitle,
		OfficialTitle: proto.Identification.OfficialTitle,
		URL:           domain.StudyBaseURL + id,

		OverallStatus:         orMissing(proto.Status.OverallStatus),
		StartDate:             dateOf(proto.Status.StartDate),
		CompletionDate:        dateOf(proto.Status.CompletionDate),
		PrimaryCompletionDate: dateOf(proto.Status.PrimaryCompletionDate),
		LastUpdatePostDate:    dateOf(proto.Status.LastUpdatePostDate),
		WhyStopped:            proto.Status.WhyStopped,
		HasResults:            study.HasResults(),

		Phase:     joinOrMissing(proto.Design.Phases),
		StudyType: optional(proto.Design.StudyType),
		Condition: joinOrMissing(proto.Conditions.Conditions),

		EnrollmentCount: enrollmentOf(proto.Design.EnrollmentInfo),

		LeadSponsorName:   leadSponsor,
		CollaboratorNames: dedupe(collaborators),

		LocationCountries:  dedupe(countries),
		LocationCities:     dedupe(cities),
		LocationFacilities: dedupe(facilities),

		EligibilityCriteria: optional(proto.Eligibility.EligibilityCriteria),
		MinimumAge:          optional(proto.Eligibility.MinimumAge),
		MaximumAge:          optional(proto.Eligibility.MaximumAge),
		Gender:              optional(proto.Eligibility.Gender),
		HealthyVolunteers:   proto.Eligibility.HealthyVolunteers,

		BriefSummary:        proto.Description.BriefSummary,
		DetailedDescription: proto.Description.DetailedDescription,

		InterventionTypes: dedupe(interventionTypes),
		InterventionNames: dedupe(interventionNames),
		Outcomes:          flattenOutcomes(&proto.Outcomes),
	}
}

// flattenOutcomes tags primary then secondary outcome measures,
// preserving each array's source order. Returns nil when both are empty.
func flattenOutcomes(m *domain.OutcomesModule) []domain.Outcome {
	total := len(m.PrimaryOutcomes) + len(m.SecondaryOutcomes)
	if total == 0 {
		return nil
	}

	out := make([]domain.Outcome, 0, total)
	for _, o := range m.PrimaryOutcomes {
		out = append(out, tagOutcome(o, domain.OutcomePrimary))
	}
	for _, o := range m.SecondaryOutcomes {
		out = append(out, tagOutcome(o, domain.OutcomeSecondary))
	}
	return out
}

func tagOutcome(o domain.OutcomeMeasure, t domain.OutcomeType) domain.Outcome {
	return domain.Outcome{
		Type:        t,
		Measure:     o.Measure,
		TimeFrame:   o.TimeFrame,
		Description: o.Description,
	}
}

// dedupe drops empty strings and duplicates, preserving first-seen
// order. Returns nil (not an empty slice) when nothing remains.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dateOf(d *domain.DateStruct) *string {
	if d == nil || d.Date == "" {
		return nil
	}
	date := d.Date
	return &date
}

func enrollmentOf(info *domain.EnrollmentInfo) *int {
	if info == nil || info.Count == 0 {
		return nil
	}
	count := info.Count
	return &count
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orMissing(s string) string {
	if s == "" {
		return valueMissing
	}
	return s
}

func joinOrMissing(values []string) string {
	joined := strings.Join(values, ", ")
	if joined == "" {
		return valueMissing
	}
	return joined
}
