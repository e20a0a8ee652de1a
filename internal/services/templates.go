package services

import (
	"fmt"

	"github.com/newdaybreak/careers/types"
)

// DecisionEmail composes the applicant email for a review outcome. A non-empty
// note is inserted verbatim after the outcome sentence.
func DecisionEmail(agency string, app types.Application, note string) types.Email {
	var subject, body string
	switch app.Status {
	case types.StatusApproved:
		subject = fmt.Sprintf("Application Approved - %s", agency)
		body = fmt.Sprintf(
			"Dear %s,\n\nCongratulations! Your application for %s has been approved.%s\n\nWe will be in touch with next steps.",
			app.FullName, app.PositionDesired, withNote(note),
		)
	default:
		subject = fmt.Sprintf("Application Update - %s", agency)
		body = fmt.Sprintf(
			"Dear %s,\n\nThank you for applying for %s. Unfortunately, your application was not successful.%s\n\nBest wishes.",
			app.FullName, app.PositionDesired, withNote(note),
		)
	}
	return types.Email{To: app.Email, Subject: subject, Body: body}
}

func withNote(note string) string {
	if note == "" {
		return ""
	}
	return " " + note
}
