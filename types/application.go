package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// ApplicationStatus is the review state of a caregiver application.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

// IsDecision reports whether the status is a valid review outcome.
func (s ApplicationStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// EmploymentEntry describes one previous job listed by an applicant. The
// careers form and the admin dashboard name the employer "name"; "employer"
// is accepted on input as well.
type EmploymentEntry struct {
	Employer         string `json:"name"`
	Position         string `json:"position"`
	Duration         string `json:"duration"`
	ReasonForLeaving string `json:"reason_for_leaving"`
}

func (e *EmploymentEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name             *string `json:"name"`
		Employer         *string `json:"employer"`
		Position         string  `json:"position"`
		Duration         string  `json:"duration"`
		ReasonForLeaving string  `json:"reason_for_leaving"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = EmploymentEntry{
		Position:         raw.Position,
		Duration:         raw.Duration,
		ReasonForLeaving: raw.ReasonForLeaving,
	}
	switch {
	case raw.Name != nil && *raw.Name != "":
		e.Employer = *raw.Name
	case raw.Employer != nil:
		e.Employer = *raw.Employer
	}
	return nil
}

// Contact is a named person with a phone number and relationship,
// used for references and the emergency contact.
type Contact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// Screening holds the applicant's eligibility self-attestations.
type Screening struct {
	IsOver18                     bool `json:"is_over_18"`
	CanPerformPhysicalTasks      bool `json:"can_perform_physical_tasks"`
	CanProvidePhysicalAssistance bool `json:"can_provide_physical_assistance"`
	CanProvideHygieneAssistance  bool `json:"can_provide_hygiene_assistance"`
	HasDriversLicense            bool `json:"has_drivers_license"`
	HasCommunicationSkills       bool `json:"has_communication_skills"`
	HasReliableTransport         bool `json:"has_reliable_transport"`
}

// Application represents a caregiver employment application.
// Applicants do not need a user account to submit one.
type Application struct {
	// ID is the unique identifier of the application.
	ID int64 `json:"id" db:"id"`

	// FullName is the applicant's full legal name.
	FullName string `json:"full_name" db:"full_name"`

	// Email is the address used for review notifications.
	Email string `json:"email" db:"email"`

	// Phone is the applicant's contact number.
	Phone string `json:"phone" db:"phone"`

	// Address is the applicant's street address.
	Address string `json:"address" db:"address"`

	// CityStateZip holds the rest of the postal address.
	CityStateZip string `json:"city_state_zip" db:"city_state_zip"`

	// DaysHoursAvailable lists availability slots in the order given.
	DaysHoursAvailable []string `json:"days_hours_available" db:"days_hours_available"`

	// SupportedLivingAvailability is optional free text.
	SupportedLivingAvailability *string `json:"supported_living_availability" db:"supported_living_availability"`

	// PositionDesired is the role the applicant is applying for.
	PositionDesired string `json:"position_desired" db:"position_desired"`

	// EmploymentHistory maps an entry key (e.g. "employer1") to a previous job.
	EmploymentHistory map[string]EmploymentEntry `json:"employment_history" db:"employment_history"`

	// EducationLevel is the highest completed education level, if given.
	EducationLevel *string `json:"education_level" db:"education_level"`

	// Certifications lists held certifications.
	Certifications []string `json:"certifications" db:"certifications"`

	// SkillsExperience is free text describing relevant experience.
	SkillsExperience *string `json:"skills_experience" db:"skills_experience"`

	// References maps an entry key to a reference contact.
	References map[string]Contact `json:"references" db:"references"`

	// EmergencyContact is the person to call in an emergency.
	EmergencyContact Contact `json:"emergency_contact" db:"emergency_contact"`

	// Signature is the applicant's typed signature.
	Signature string `json:"signature" db:"signature"`

	Screening

	// Status is the current review state.
	Status ApplicationStatus `json:"status" db:"status"`

	// SubmittedAt is set once, when the application is created.
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`

	// ReviewedAt is nil until an administrator records a decision.
	ReviewedAt *time.Time `json:"reviewed_at" db:"reviewed_at"`
}

// Normalize replaces nil containers with empty ones so that
// every list and mapping field serializes as [] or {}.
func (a *Application) Normalize() {
	if a.DaysHoursAvailable == nil {
		a.DaysHoursAvailable = []string{}
	}
	if a.Certifications == nil {
		a.Certifications = []string{}
	}
	if a.EmploymentHistory == nil {
		a.EmploymentHistory = map[string]EmploymentEntry{}
	}
	if a.References == nil {
		a.References = map[string]Contact{}
	}
}

// ExportFilename returns the download name for the given format extension.
func (a Application) ExportFilename(ext string) string {
	return fmt.Sprintf("application_%d.%s", a.ID, ext)
}

// ScreeningSummary is the subset of screening flags shown in admin listings.
type ScreeningSummary struct {
	IsOver18             bool `json:"is_over_18"`
	HasDriversLicense    bool `json:"has_drivers_license"`
	HasReliableTransport bool `json:"has_reliable_transport"`
}

// ApplicationSummary is the list view of an application.
type ApplicationSummary struct {
	ID              int64             `json:"id"`
	FullName        string            `json:"full_name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	PositionDesired string            `json:"position_desired"`
	Status          ApplicationStatus `json:"status"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	ReviewedAt      *time.Time        `json:"reviewed_at"`
	Screening       ScreeningSummary  `json:"screening"`
}

// Summary reduces the application to its list view.
func (a Application) Summary() ApplicationSummary {
	return ApplicationSummary{
		ID:              a.ID,
		FullName:        a.FullName,
		Email:           a.Email,
		Phone:           a.Phone,
		PositionDesired: a.PositionDesired,
		Status:          a.Status,
		SubmittedAt:     a.SubmittedAt,
		ReviewedAt:      a.ReviewedAt,
		Screening: ScreeningSummary{
			IsOver18:             a.IsOver18,
			HasDriversLicense:    a.HasDriversLicense,
			HasReliableTransport: a.HasReliableTransport,
		},
	}
}
