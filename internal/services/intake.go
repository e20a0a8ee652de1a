package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newdaybreak/careers/internal/metrics"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

// ApplicationRepository defines persistence operations for caregiver applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app types.Application) (types.Application, error)
	Get(ctx context.Context, id int64) (types.Application, error)
	List(ctx context.Context) ([]types.Application, error)
	RecordDecision(
		ctx context.Context,
		id int64,
		status types.ApplicationStatus,
		reviewedAt time.Time,
		compose func(types.Application) types.Notification,
	) (types.Application, types.Notification, error)
}

// Submission is the payload of an application form. Screening answers are
// loosely typed because the form sends booleans, strings or numbers.
type Submission struct {
	FullName                    string                           `json:"full_name"`
	Email                       string                           `json:"email"`
	Phone                       string                           `json:"phone"`
	Address                     string                           `json:"address"`
	CityStateZip                string                           `json:"city_state_zip"`
	DaysHoursAvailable          []string                         `json:"days_hours_available"`
	SupportedLivingAvailability *string                          `json:"supported_living_availability"`
	PositionDesired             string                           `json:"position_desired"`
	EmploymentHistory           map[string]types.EmploymentEntry `json:"employment_history"`
	EducationLevel              *string                          `json:"education_level"`
	Certifications              []string                         `json:"certifications"`
	SkillsExperience            *string                          `json:"skills_experience"`
	References                  map[string]types.Contact         `json:"references"`
	EmergencyContact            *types.Contact                   `json:"emergency_contact"`
	Signature                   string                           `json:"signature"`

	IsOver18                     any `json:"is_over_18"`
	CanPerformPhysicalTasks      any `json:"can_perform_physical_tasks"`
	CanProvidePhysicalAssistance any `json:"can_provide_physical_assistance"`
	CanProvideHygieneAssistance  any `json:"can_provide_hygiene_assistance"`
	HasDriversLicense            any `json:"has_drivers_license"`
	HasCommunicationSkills       any `json:"has_communication_skills"`
	HasReliableTransport         any `json:"has_reliable_transport"`
}

// IntakeService accepts new caregiver applications.
type IntakeService struct {
	repo ApplicationRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewIntakeService(repo ApplicationRepository, log logrus.FieldLogger) *IntakeService {
	return &IntakeService{repo: repo, log: log, now: time.Now}
}

// Submit validates and stores a submission and returns the new application id.
// All missing required fields are reported together.
func (s *IntakeService) Submit(ctx context.Context, sub Submission) (int64, error) {
	if missing := missingFields(sub); len(missing) > 0 {
		return 0, invalid("missing required fields", missing...)
	}

	app := types.Application{
		FullName:                    strings.TrimSpace(sub.FullName),
		Email:                       strings.TrimSpace(sub.Email),
		Phone:                       strings.TrimSpace(sub.Phone),
		Address:                     strings.TrimSpace(sub.Address),
		CityStateZip:                strings.TrimSpace(sub.CityStateZip),
		DaysHoursAvailable:          sub.DaysHoursAvailable,
		SupportedLivingAvailability: sub.SupportedLivingAvailability,
		PositionDesired:             strings.TrimSpace(sub.PositionDesired),
		EmploymentHistory:           sub.EmploymentHistory,
		EducationLevel:              sub.EducationLevel,
		Certifications:              sub.Certifications,
		SkillsExperience:            sub.SkillsExperience,
		References:                  sub.References,
		Signature:                   strings.TrimSpace(sub.Signature),
		Screening: types.Screening{
			IsOver18:                     NormalizeBool(sub.IsOver18),
			CanPerformPhysicalTasks:      NormalizeBool(sub.CanPerformPhysicalTasks),
			CanProvidePhysicalAssistance: NormalizeBool(sub.CanProvidePhysicalAssistance),
			CanProvideHygieneAssistance:  NormalizeBool(sub.CanProvideHygieneAssistance),
			HasDriversLicense:            NormalizeBool(sub.HasDriversLicense),
			HasCommunicationSkills:       NormalizeBool(sub.HasCommunicationSkills),
			HasReliableTransport:         NormalizeBool(sub.HasReliableTransport),
		},
		Status:      types.StatusPending,
		SubmittedAt: s.now().UTC(),
	}
	if sub.EmergencyContact != nil {
		app.EmergencyContact = *sub.EmergencyContact
	}
	app.Normalize()

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		s.log.WithError(err).Error("store application")
		return 0, fmt.Errorf("%w: store application: %w", ErrStorage, err)
	}

	metrics.ApplicationSubmitted()
	s.log.WithFields(logrus.Fields{
		"application_id": created.ID,
		"position":       created.PositionDesired,
	}).Info("application submitted")
	return created.ID, nil
}

func missingFields(sub Submission) []string {
	required := []struct {
		name  string
		value string
	}{
		{"full_name", sub.FullName},
		{"email", sub.Email},
		{"phone", sub.Phone},
		{"address", sub.Address},
		{"city_state_zip", sub.CityStateZip},
		{"position_desired", sub.PositionDesired},
		{"signature", sub.Signature},
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// NormalizeBool interprets a loosely typed form answer. Booleans pass through;
// anything else is true only when its trimmed, lower-cased text is one of
// 1, true, yes, y or on.
func NormalizeBool(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return truthy(v)
	case fmt.Stringer:
		return truthy(v.String())
	default:
		return truthy(fmt.Sprint(v))
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
