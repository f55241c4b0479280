package domain

import (
	"bytes"
	"encoding/json"
)

// Study is a single raw record from the ClinicalTrials.gov v2 API.
// The upstream omits any module a study does not populate, so every
// nested section decodes to its zero value when absent and accessors
// must never assume presence.
type Study struct {
	ProtocolSection ProtocolSection `json:"protocolSection"`
	ResultsSection  json.RawMessage `json:"resultsSection,omitempty"`
}

// HasResults reports whether the record carries a results section.
// Presence of the key counts, even when the section is empty.
func (s *Study) HasResults() bool {
	trimmed := bytes.TrimSpace(s.ResultsSection)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ProtocolSection groups the protocol modules of a study.
type ProtocolSection struct {
	Identification       IdentificationModule       `json:"identificationModule"`
	Status               StatusModule               `json:"statusModule"`
	Conditions           ConditionsModule           `json:"conditionsModule"`
	Design               DesignModule               `json:"designModule"`
	ContactsLocations    ContactsLocationsModule    `json:"contactsLocationsModule"`
	SponsorCollaborators SponsorCollaboratorsModule `json:"sponsorCollaboratorsModule"`
	Eligibility          EligibilityModule          `json:"eligibilityModule"`
	Description          DescriptionModule          `json:"descriptionModule"`
	ArmsInterventions    ArmsInterventionsModule    `json:"armsInterventionsModule"`
	Outcomes             OutcomesModule             `json:"outcomesModule"`
}

// IdentificationModule holds study identity fields.
type IdentificationModule struct {
	NCTID         string `json:"nctId"`
	BriefTitle    string `json:"briefTitle"`
	OfficialTitle string `json:"officialTitle"`
}

// DateStruct wraps an upstream date value.
type DateStruct struct {
	Date string `json:"date"`
}

// StatusModule holds study status and milestone dates.
type StatusModule struct {
	OverallStatus         string      `json:"overallStatus"`
	StartDate             *DateStruct `json:"startDateStruct"`
	CompletionDate        *DateStruct `json:"completionDateStruct"`
	PrimaryCompletionDate *DateStruct `json:"primaryCompletionDateStruct"`
	LastUpdatePostDate    *DateStruct `json:"lastUpdatePostDateStruct"`
	WhyStopped            string      `json:"whyStopped"`
}

// ConditionsModule lists the conditions a study targets.
type ConditionsModule struct {
	Conditions []string `json:"conditions"`
}

// EnrollmentInfo holds the planned or actual enrollment count.
type EnrollmentInfo struct {
	Count int `json:"count"`
}

// DesignModule holds study design fields.
type DesignModule struct {
	Phases         []string        `json:"phases"`
	StudyType      string          `json:"studyType"`
	EnrollmentInfo *EnrollmentInfo `json:"enrollmentInfo"`
}

// Location is a single study site.
type Location struct {
	Facility string `json:"facility"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

// ContactsLocationsModule lists study sites.
type ContactsLocationsModule struct {
	Locations []Location `json:"locations"`
}

// Agency is a sponsor or collaborator organization.
type Agency struct {
	Name string `json:"name"`
}

// SponsorCollaboratorsModule holds sponsorship fields.
type SponsorCollaboratorsModule struct {
	LeadSponsor   *Agency  `json:"leadSponsor"`
	Collaborators []Agency `json:"collaborators"`
}

// EligibilityModule holds enrollment eligibility fields.
type EligibilityModule struct {
	EligibilityCriteria string `json:"eligibilityCriteria"`
	MinimumAge          string `json:"minimumAge"`
	MaximumAge          string `json:"maximumAge"`
	Gender              string `json:"gender"`
	HealthyVolunteers   *bool  `json:"healthyVolunteers"`
}

// DescriptionModule holds narrative fields.
type DescriptionModule struct {
	BriefSummary        string `json:"briefSummary"`
	DetailedDescription string `json:"detailedDescription"`
}

// Intervention is a single study intervention.
type Intervention struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ArmsInterventionsModule lists study interventions.
type ArmsInterventionsModule struct {
	Interventions []Intervention `json:"interventions"`
}

// OutcomeMeasure is a single raw outcome entry.
type OutcomeMeasure struct {
	Measure     string `json:"measure"`
	TimeFrame   string `json:"timeFrame"`
	Description string `json:"description"`
}

// OutcomesModule holds primary and secondary outcome measures.
type OutcomesModule struct {
	PrimaryOutcomes   []OutcomeMeasure `json:"primaryOutcomes"`
	SecondaryOutcomes []OutcomeMeasure `json:"secondaryOutcomes"`
}
