package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newdaybreak/careers/internal/metrics"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

// OutboxSignal is told when a new notification has been committed.
type OutboxSignal interface {
	Nudge()
}

// ReviewService lists applications and records review decisions.
type ReviewService struct {
	repo   ApplicationRepository
	signal OutboxSignal
	agency string
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewReviewService(repo ApplicationRepository, signal OutboxSignal, agency string, log logrus.FieldLogger) *ReviewService {
	return &ReviewService{
		repo:   repo,
		signal: signal,
		agency: agency,
		log:    log,
		now:    time.Now,
	}
}

// List returns every application as a summary, newest submission first.
func (s *ReviewService) List(ctx context.Context, identity Identity) ([]types.ApplicationSummary, error) {
	if err := RequireRole(identity, types.RoleAdmin); err != nil {
		return nil, err
	}

	apps, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list applications: %w", ErrStorage, err)
	}

	summaries := make([]types.ApplicationSummary, 0, len(apps))
	for _, app := range apps {
		summaries = append(summaries, app.Summary())
	}
	return summaries, nil
}

// UpdateStatus records an approve or reject decision and queues the
// applicant email in the same transaction. Delivery happens after commit and
// never undoes the decision. Already reviewed applications may be decided
// again; each call queues its own email.
func (s *ReviewService) UpdateStatus(ctx context.Context, identity Identity, id int64, status, note string) (types.Application, error) {
	if err := RequireRole(identity, types.RoleAdmin); err != nil {
		return types.Application{}, err
	}

	decision := types.ApplicationStatus(strings.ToLower(strings.TrimSpace(status)))
	if !decision.IsDecision() {
		return types.Application{}, invalid("status must be 'approved' or 'rejected'")
	}

	app, notification, err := s.repo.RecordDecision(ctx, id, decision, s.now().UTC(), func(updated types.Application) types.Notification {
		email := DecisionEmail(s.agency, updated, note)
		return types.Notification{
			ApplicationID: updated.ID,
			Recipient:     email.To,
			Subject:       email.Subject,
			Body:          email.Body,
		}
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Application{}, err
		}
		return types.Application{}, fmt.Errorf("%w: record decision: %w", ErrStorage, err)
	}

	metrics.StatusTransition(string(decision))
	s.log.WithFields(logrus.Fields{
		"application_id":  app.ID,
		"status":          app.Status,
		"reviewer_id":     identity.UserID,
		"notification_id": notification.ID,
	}).Info("application reviewed")

	if s.signal != nil {
		s.signal.Nudge()
	}
	return app, nil
}
