package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
)

type memoryOutbox struct {
	mu      sync.Mutex
	entries map[string]types.Notification
}

func newMemoryOutbox(items ...types.Notification) *memoryOutbox {
	o := &memoryOutbox{entries: map[string]types.Notification{}}
	for i, n := range items {
		if n.Status == "" {
			n.Status = types.NotificationPending
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Date(2026, 10, 1, 0, 0, i, 0, time.UTC)
		}
		o.entries[n.ID] = n
	}
	return o
}

func (o *memoryOutbox) get(id string) types.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entries[id]
}

func (o *memoryOutbox) Get(_ context.Context, id string) (types.Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.entries[id]
	if !ok {
		return types.Notification{}, store.ErrNotFound
	}
	return n, nil
}

func (o *memoryOutbox) ListDue(_ context.Context, now time.Time, limit int) ([]types.Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var due []types.Notification
	for _, n := range o.entries {
		if n.Status == types.NotificationPending && !n.NextAttemptAt.After(now) {
			due = append(due, n)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextAttemptAt.Equal(due[j].NextAttemptAt) {
			return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (o *memoryOutbox) MarkDispatched(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	if n.Status != types.NotificationDelivered {
		n.Status = types.NotificationDispatched
	}
	o.entries[id] = n
	return nil
}

func (o *memoryOutbox) MarkFailed(_ context.Context, id string, cause string, retryAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.entries[id]
	if !ok || n.Status != types.NotificationPending {
		return store.ErrNotFound
	}
	n.Attempts++
	n.LastError = &cause
	n.NextAttemptAt = retryAt
	o.entries[id] = n
	return nil
}

func (o *memoryOutbox) MarkUndeliverable(_ context.Context, id string, cause string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.entries[id]
	if !ok || n.Status != types.NotificationPending {
		return store.ErrNotFound
	}
	n.Attempts++
	n.LastError = &cause
	n.Status = types.NotificationUndeliverable
	o.entries[id] = n
	return nil
}

func (o *memoryOutbox) MarkDelivered(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	n.Status = types.NotificationDelivered
	o.entries[id] = n
	return nil
}

type recordingMailer struct {
	mu       sync.Mutex
	sent     []types.Email
	failures int
	bounce   string
}

func (m *recordingMailer) Send(_ context.Context, email types.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bounce != "" && email.To == m.bounce {
		return errors.New("550 mailbox unavailable")
	}
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *recordingMailer) Sent() []types.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Email(nil), m.sent...)
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, types.Notification) error {
	return errors.New("broker down")
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
