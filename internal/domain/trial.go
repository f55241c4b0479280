package domain

// StudyBaseURL is the public study page prefix; a trial's URL is this
// prefix plus its NCT identifier.
const StudyBaseURL = "https://clinicaltrials.gov/study/"

// OutcomeType tags an outcome measure as primary or secondary.
type OutcomeType string

// Outcome type values.
const (
	OutcomePrimary   OutcomeType = "Primary"
	OutcomeSecondary OutcomeType = "Secondary"
)

// Outcome is a flattened outcome measure tagged with its category.
type Outcome struct {
	Type        OutcomeType `json:"type"`
	Measure     string      `json:"measure,omitempty"`
	TimeFrame   string      `json:"timeFrame,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Trial is the normalized study shape served to clients.
//
// Every list-valued field is deduplicated and nil (serialized as null)
// when no values exist, so consumers only distinguish null from
// non-empty. Nullable scalars use pointers for the same reason.
type Trial struct {
	ID            string `json:"id"`
	BriefTitle    string `json:"briefTitle"`
	OfficialTitle string `json:"officialTitle,omitempty"`
	URL           string `json:"url"`

	OverallStatus         string  `json:"overallStatus"`
	StartDate             *string `json:"startDate"`
	CompletionDate        *string `json:"completionDate"`
	PrimaryCompletionDate *string `json:"primaryCompletionDate"`
	LastUpdatePostDate    *string `json:"lastUpdatePostDate"`
	WhyStopped            string  `json:"whyStopped,omitempty"`
	HasResults            bool    `json:"hasResults"`

	Phase     string  `json:"phase"`
	StudyType *string `json:"studyType"`
	Condition string  `json:"condition"`

	EnrollmentCount *int `json:"enrollmentCount"`

	LeadSponsorName   *string  `json:"leadSponsorName"`
	CollaboratorNames []string `json:"collaboratorNames"`

	LocationCountries  []string `json:"locationCountries"`
	LocationCities     []string `json:"locationCities"`
	LocationFacilities []string `json:"locationFacilities"`

	EligibilityCriteria *string `json:"eligibilityCriteria"`
	MinimumAge          *string `json:"minimumAge"`
	MaximumAge          *string `json:"maximumAge"`
	Gender              *string `json:"gender"`
	HealthyVolunteers   *bool   `json:"healthyVolunteers"`

	BriefSummary        string `json:"briefSummary"`
	DetailedDescription string `json:"detailedDescription,omitempty"`

	InterventionTypes []string  `json:"interventionTypes"`
	InterventionNames []string  `json:"interventionNames"`
	Outcomes          []Outcome `json:"outcomes"`
}
