package model

// Priority is the normalized urgency chosen by the submitter.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ReportType is the normalized kind of report.
type ReportType string

const (
	ReportTypeBug              ReportType = "bug"
	ReportTypeFeatureRequest   ReportType = "feature_request"
	ReportTypeUsageQuestion    ReportType = "usage_question"
	ReportTypeTechnicalSupport ReportType = "technical_support"
)

// ImpactScope describes how many people the problem affects.
type ImpactScope string

const (
	ImpactScopeIndividual ImpactScope = "individual"
	ImpactScopeTeam       ImpactScope = "team"
	ImpactScopeDepartment ImpactScope = "department"
	ImpactScopeCompany    ImpactScope = "company"
)

// ContactMethod is how the submitter prefers to be reached.
type ContactMethod string

const (
	ContactMethodEmail ContactMethod = "email"
	ContactMethodPhone ContactMethod = "phone"
	ContactMethodChat  ContactMethod = "chat"
)

// Severity is the AI- or fallback-derived urgency of a submission.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Complexity is the estimated effort to handle a submission.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	}
	return false
}
