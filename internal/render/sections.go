// Package render lays out caregiver applications as printable documents.
package render

import (
	"sort"
	"strings"
	"time"

	"github.com/newdaybreak/careers/types"
)

// Field is one labelled value in a section.
type Field struct {
	Label string
	Value string
}

// Section is a titled group of fields. Groups split a section into
// sub-blocks, one per employment entry or reference.
type Section struct {
	Title  string
	Fields []Field
	Groups [][]Field
	Text   string
}

// Sections returns the document layout of an application in print order.
func Sections(app types.Application) []Section {
	return []Section{
		{
			Title: "Personal Information",
			Fields: []Field{
				{"Full name", app.FullName},
				{"Email", app.Email},
				{"Phone", app.Phone},
				{"Address", app.Address},
				{"City, State, ZIP", app.CityStateZip},
				{"Position desired", app.PositionDesired},
				{"Days/hours available", joinOrNone(app.DaysHoursAvailable)},
				{"Supported living availability", deref(app.SupportedLivingAvailability)},
			},
		},
		{
			Title:  "Employment History",
			Groups: employmentGroups(app.EmploymentHistory),
		},
		{
			Title: "Education & Certifications",
			Fields: []Field{
				{"Education level", deref(app.EducationLevel)},
				{"Certifications", joinOrNone(app.Certifications)},
			},
		},
		{
			Title: "Skills & Experience",
			Text:  deref(app.SkillsExperience),
		},
		{
			Title:  "References",
			Groups: referenceGroups(app.References),
		},
		{
			Title:  "Emergency Contact",
			Fields: contactFields(app.EmergencyContact),
		},
		{
			Title: "Screening",
			Fields: []Field{
				{"Over 18", yesNo(app.IsOver18)},
				{"Can perform physical tasks", yesNo(app.CanPerformPhysicalTasks)},
				{"Can provide physical assistance", yesNo(app.CanProvidePhysicalAssistance)},
				{"Can provide hygiene assistance", yesNo(app.CanProvideHygieneAssistance)},
				{"Has driver's license", yesNo(app.HasDriversLicense)},
				{"Has communication skills", yesNo(app.HasCommunicationSkills)},
				{"Has reliable transport", yesNo(app.HasReliableTransport)},
			},
		},
		{
			Title: "Signature & Status",
			Fields: []Field{
				{"Signature", app.Signature},
				{"Status", string(app.Status)},
				{"Submitted", formatTime(&app.SubmittedAt)},
				{"Reviewed", formatTime(app.ReviewedAt)},
			},
		},
	}
}

func employmentGroups(history map[string]types.EmploymentEntry) [][]Field {
	groups := make([][]Field, 0, len(history))
	for _, key := range sortedKeys(history) {
		entry := history[key]
		groups = append(groups, []Field{
			{"Employer", entry.Employer},
			{"Position", entry.Position},
			{"Duration", entry.Duration},
			{"Reason for leaving", entry.ReasonForLeaving},
		})
	}
	return groups
}

func referenceGroups(refs map[string]types.Contact) [][]Field {
	groups := make([][]Field, 0, len(refs))
	for _, key := range sortedKeys(refs) {
		groups = append(groups, contactFields(refs[key]))
	}
	return groups
}

func contactFields(c types.Contact) []Field {
	return []Field{
		{"Name", c.Name},
		{"Phone", c.Phone},
		{"Relationship", c.Relationship},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.Join(values, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
