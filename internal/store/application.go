package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/newdaybreak/careers/types"
)

// ApplicationRepository handles persistence for caregiver applications.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, full_name, email, phone, address, city_state_zip,
		days_hours_available, supported_living_availability, position_desired,
		employment_history, education_level, certifications, skills_experience,
		"references", emergency_contact, signature,
		is_over_18, can_perform_physical_tasks, can_provide_physical_assistance,
		can_provide_hygiene_assistance, has_drivers_license, has_communication_skills,
		has_reliable_transport, status, submitted_at, reviewed_at`

// Create inserts a new application. The insert runs in its own transaction so
// that a failure leaves nothing behind.
func (r *ApplicationRepository) Create(ctx context.Context, app types.Application) (types.Application, error) {
	app.Normalize()
	if app.Status == "" {
		app.Status = types.StatusPending
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}
	app.ReviewedAt = nil

	historyJSON, err := json.Marshal(app.EmploymentHistory)
	if err != nil {
		return types.Application{}, err
	}
	referencesJSON, err := json.Marshal(app.References)
	if err != nil {
		return types.Application{}, err
	}
	emergencyJSON, err := json.Marshal(app.EmergencyContact)
	if err != nil {
		return types.Application{}, err
	}

	const query = `
		INSERT INTO caregiver_applications (
			full_name, email, phone, address, city_state_zip,
			days_hours_available, supported_living_availability, position_desired,
			employment_history, education_level, certifications, skills_experience,
			"references", emergency_contact, signature,
			is_over_18, can_perform_physical_tasks, can_provide_physical_assistance,
			can_provide_hygiene_assistance, has_drivers_license, has_communication_skills,
			has_reliable_transport, status, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id`

	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(
			ctx,
			query,
			app.FullName,
			app.Email,
			app.Phone,
			app.Address,
			app.CityStateZip,
			pq.StringArray(app.DaysHoursAvailable),
			app.SupportedLivingAvailability,
			app.PositionDesired,
			historyJSON,
			app.EducationLevel,
			pq.StringArray(app.Certifications),
			app.SkillsExperience,
			referencesJSON,
			emergencyJSON,
			app.Signature,
			app.IsOver18,
			app.CanPerformPhysicalTasks,
			app.CanProvidePhysicalAssistance,
			app.CanProvideHygieneAssistance,
			app.HasDriversLicense,
			app.HasCommunicationSkills,
			app.HasReliableTransport,
			app.Status,
			app.SubmittedAt,
		).Scan(&app.ID)
	})
	if err != nil {
		return types.Application{}, err
	}
	return app, nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id int64) (types.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM caregiver_applications
		WHERE id = $1`
	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	return app, nil
}

// List returns every application, most recently submitted first. Rows with the
// same submission time keep insertion order.
func (r *ApplicationRepository) List(ctx context.Context) ([]types.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM caregiver_applications
		ORDER BY submitted_at DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]types.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

// RecordDecision sets the status and review time of an application and stores
// the notification built by compose, all in one transaction. compose receives
// the updated record.
func (r *ApplicationRepository) RecordDecision(
	ctx context.Context,
	id int64,
	status types.ApplicationStatus,
	reviewedAt time.Time,
	compose func(types.Application) types.Notification,
) (types.Application, types.Notification, error) {
	const query = `
		UPDATE caregiver_applications
		SET status = $1,
			reviewed_at = $2
		WHERE id = $3
		RETURNING ` + applicationColumns

	var (
		app          types.Application
		notification types.Notification
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		updated, err := scanApplication(tx.QueryRowContext(ctx, query, status, reviewedAt, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		app = updated

		notification = compose(updated)
		if err := insertNotification(ctx, tx, &notification); err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Application{}, types.Notification{}, err
	}
	return app, notification, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (types.Application, error) {
	var (
		app                   types.Application
		days, certifications  pq.StringArray
		supportedLiving       sql.NullString
		educationLevel        sql.NullString
		skillsExperience      sql.NullString
		historyJSON, refsJSON []byte
		emergencyJSON         []byte
		status                string
		reviewedAt            sql.NullTime
	)
	if err := row.Scan(
		&app.ID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.Address,
		&app.CityStateZip,
		&days,
		&supportedLiving,
		&app.PositionDesired,
		&historyJSON,
		&educationLevel,
		&certifications,
		&skillsExperience,
		&refsJSON,
		&emergencyJSON,
		&app.Signature,
		&app.IsOver18,
		&app.CanPerformPhysicalTasks,
		&app.CanProvidePhysicalAssistance,
		&app.CanProvideHygieneAssistance,
		&app.HasDriversLicense,
		&app.HasCommunicationSkills,
		&app.HasReliableTransport,
		&status,
		&app.SubmittedAt,
		&reviewedAt,
	); err != nil {
		return types.Application{}, err
	}

	app.DaysHoursAvailable = []string(days)
	app.Certifications = []string(certifications)
	app.SupportedLivingAvailability = nullableString(supportedLiving)
	app.EducationLevel = nullableString(educationLevel)
	app.SkillsExperience = nullableString(skillsExperience)
	app.Status = types.ApplicationStatus(status)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		app.ReviewedAt = &t
	}

	columns := []struct {
		name string
		data []byte
		dest any
	}{
		{"employment_history", historyJSON, &app.EmploymentHistory},
		{"references", refsJSON, &app.References},
		{"emergency_contact", emergencyJSON, &app.EmergencyContact},
	}
	for _, column := range columns {
		if len(column.data) == 0 {
			continue
		}
		if err := json.Unmarshal(column.data, column.dest); err != nil {
			return types.Application{}, fmt.Errorf("decode %s of application %d: %w", column.name, app.ID, err)
		}
	}
	app.Normalize()
	return app, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
