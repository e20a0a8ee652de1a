package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newdaybreak/careers/internal/logging"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agency = "New Daybreak Home Support"

func newReviewService(repo ApplicationRepository, signal OutboxSignal) *ReviewService {
	return NewReviewService(repo, signal, agency, logging.Discard())
}

func TestListRequiresAdmin(t *testing.T) {
	repo := newFakeApplicationRepo()
	repo.seed(sampleApplication())
	svc := newReviewService(repo, nil)

	_, err := svc.List(context.Background(), employeeIdentity)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, repo.calls)
}

func TestListNewestFirstWithSummary(t *testing.T) {
	repo := newFakeApplicationRepo()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	older := sampleApplication()
	older.SubmittedAt = base
	newer := sampleApplication()
	newer.FullName = "Newer"
	newer.SubmittedAt = base.Add(time.Hour)
	newer.IsOver18 = true
	newer.HasDriversLicense = true
	tie := sampleApplication()
	tie.FullName = "Tie"
	tie.SubmittedAt = base

	repo.seed(older)
	repo.seed(newer)
	repo.seed(tie)

	list, err := newReviewService(repo, nil).List(context.Background(), adminIdentity)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{2, 1, 3}, []int64{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, types.ScreeningSummary{IsOver18: true, HasDriversLicense: true}, list[0].Screening)
}

func TestUpdateStatusApprovedQueuesEmail(t *testing.T) {
	repo := newFakeApplicationRepo()
	app := repo.seed(sampleApplication())
	signal := &countingSignal{}
	svc := newReviewService(repo, signal)
	before := time.Now().UTC().Add(-time.Second)

	updated, err := svc.UpdateStatus(context.Background(), adminIdentity, app.ID, "approved", "Start Monday")
	require.NoError(t, err)

	assert.Equal(t, types.StatusApproved, updated.Status)
	require.NotNil(t, updated.ReviewedAt)
	assert.True(t, updated.ReviewedAt.After(before))
	assert.Equal(t, 1, signal.Count())

	require.Len(t, repo.notifications, 1)
	n := repo.notifications[0]
	assert.Equal(t, "jane@example.com", n.Recipient)
	assert.Equal(t, app.ID, n.ApplicationID)
	assert.Contains(t, n.Subject, "Approved")
	assert.Contains(t, n.Body, "Caregiver")
	assert.Contains(t, n.Body, "Start Monday")
}

func TestUpdateStatusRejectedUsesDeclineTemplate(t *testing.T) {
	repo := newFakeApplicationRepo()
	app := repo.seed(sampleApplication())

	_, err := newReviewService(repo, nil).UpdateStatus(context.Background(), adminIdentity, app.ID, "rejected", "")
	require.NoError(t, err)

	n := repo.notifications[0]
	assert.Equal(t, "Application Update - "+agency, n.Subject)
	assert.Contains(t, n.Body, "not successful")
	assert.Contains(t, n.Body, "Caregiver")
	assert.False(t, strings.Contains(n.Body, "successful. \n"), "empty note leaves no trailing space")
}

func TestUpdateStatusRejectsInvalidStatus(t *testing.T) {
	repo := newFakeApplicationRepo()
	app := repo.seed(sampleApplication())
	signal := &countingSignal{}

	for _, status := range []string{"pending", "", "archived"} {
		_, err := newReviewService(repo, signal).UpdateStatus(context.Background(), adminIdentity, app.ID, status, "")
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "status %q: got %v", status, err)
	}

	assert.Equal(t, types.StatusPending, repo.apps[app.ID].Status)
	assert.Nil(t, repo.apps[app.ID].ReviewedAt)
	assert.Empty(t, repo.notifications)
	assert.Zero(t, signal.Count())
}

func TestUpdateStatusForbiddenBeforeAnythingElse(t *testing.T) {
	repo := newFakeApplicationRepo()

	_, err := newReviewService(repo, nil).UpdateStatus(context.Background(), employeeIdentity, 404, "bogus", "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, repo.calls)
}

func TestUpdateStatusUnknownApplication(t *testing.T) {
	repo := newFakeApplicationRepo()
	signal := &countingSignal{}

	_, err := newReviewService(repo, signal).UpdateStatus(context.Background(), adminIdentity, 99, "approved", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, signal.Count())
}

func TestUpdateStatusStorageFailure(t *testing.T) {
	repo := newFakeApplicationRepo()
	app := repo.seed(sampleApplication())
	repo.decisionErr = errBoom

	_, err := newReviewService(repo, nil).UpdateStatus(context.Background(), adminIdentity, app.ID, "approved", "")
	assert.ErrorIs(t, err, ErrStorage)
}

func TestUpdateStatusAllowsReDecision(t *testing.T) {
	repo := newFakeApplicationRepo()
	app := repo.seed(sampleApplication())
	svc := newReviewService(repo, nil)

	_, err := svc.UpdateStatus(context.Background(), adminIdentity, app.ID, "approved", "")
	require.NoError(t, err)
	updated, err := svc.UpdateStatus(context.Background(), adminIdentity, app.ID, "rejected", "")
	require.NoError(t, err)

	assert.Equal(t, types.StatusRejected, updated.Status)
	assert.Len(t, repo.notifications, 2)
}

func TestDecisionEmailApproved(t *testing.T) {
	app := sampleApplication()
	app.Status = types.StatusApproved

	email := DecisionEmail(agency, app, "Start Monday")
	assert.Equal(t, "jane@example.com", email.To)
	assert.Equal(t, "Application Approved - "+agency, email.Subject)
	assert.Equal(t,
		"Dear Jane Doe,\n\nCongratulations! Your application for Caregiver has been approved. Start Monday\n\nWe will be in touch with next steps.",
		email.Body,
	)
}
