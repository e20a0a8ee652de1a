package store

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var applicationColumnNames = []string{
	"id", "full_name", "email", "phone", "address", "city_state_zip",
	"days_hours_available", "supported_living_availability", "position_desired",
	"employment_history", "education_level", "certifications", "skills_experience",
	"references", "emergency_contact", "signature",
	"is_over_18", "can_perform_physical_tasks", "can_provide_physical_assistance",
	"can_provide_hygiene_assistance", "has_drivers_license", "has_communication_skills",
	"has_reliable_transport", "status", "submitted_at", "reviewed_at",
}

func applicationRow(id int64, name, status string, submittedAt time.Time, reviewedAt any) []driver.Value {
	return []driver.Value{
		id, name, "jane@example.com", "555-0100", "1 Main St", "Springfield, IL 62701",
		[]byte(`{"Mon AM","Tue PM"}`), nil, "Caregiver",
		[]byte(`{"employer1":{"employer":"Acme Care","position":"Aide","duration":"2y","reason_for_leaving":"moved"}}`),
		"High school", []byte(`{CPR}`), nil,
		[]byte(`{}`), []byte(`{"name":"John","phone":"555-0111","relationship":"brother"}`), "Jane Doe",
		true, true, false,
		false, true, true,
		false, status, submittedAt, reviewedAt,
	}
}
