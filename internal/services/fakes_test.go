package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/newdaybreak/careers/internal/store"
	"github.com/newdaybreak/careers/types"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]types.User
	nextID int64
	err    error
}

func newFakeUserRepo(users ...types.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[int64]types.User{}}
	for _, u := range users {
		repo.nextID++
		if u.ID == 0 {
			u.ID = repo.nextID
		}
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) CreateAdminIfMissing(_ context.Context, user types.User) (types.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Role == types.RoleAdmin {
			return types.User{}, false, nil
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.Role = types.RoleAdmin
	r.users[user.ID] = user
	return user, true, nil
}

type fakeApplicationRepo struct {
	mu            sync.Mutex
	apps          map[int64]types.Application
	notifications []types.Notification
	nextID        int64
	createErr     error
	decisionErr   error
	calls         int
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{apps: map[int64]types.Application{}}
}

func (r *fakeApplicationRepo) seed(app types.Application) types.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	app.ID = r.nextID
	if app.Status == "" {
		app.Status = types.StatusPending
	}
	app.Normalize()
	r.apps[app.ID] = app
	return app
}

func (r *fakeApplicationRepo) Create(_ context.Context, app types.Application) (types.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return types.Application{}, r.createErr
	}
	r.nextID++
	app.ID = r.nextID
	r.apps[app.ID] = app
	return app, nil
}

func (r *fakeApplicationRepo) Get(_ context.Context, id int64) (types.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	app, ok := r.apps[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	return app, nil
}

func (r *fakeApplicationRepo) List(_ context.Context) ([]types.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	apps := make([]types.Application, 0, len(r.apps))
	for _, app := range r.apps {
		apps = append(apps, app)
	}
	sort.SliceStable(apps, func(i, j int) bool {
		if !apps[i].SubmittedAt.Equal(apps[j].SubmittedAt) {
			return apps[i].SubmittedAt.After(apps[j].SubmittedAt)
		}
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}

func (r *fakeApplicationRepo) RecordDecision(
	_ context.Context,
	id int64,
	status types.ApplicationStatus,
	reviewedAt time.Time,
	compose func(types.Application) types.Notification,
) (types.Application, types.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	app, ok := r.apps[id]
	if !ok {
		return types.Application{}, types.Notification{}, store.ErrNotFound
	}
	if r.decisionErr != nil {
		return types.Application{}, types.Notification{}, r.decisionErr
	}
	app.Status = status
	app.ReviewedAt = &reviewedAt
	n := compose(app)
	n.ID = "n-" + time.Now().Format("150405.000000000")
	n.Status = types.NotificationPending
	r.apps[id] = app
	r.notifications = append(r.notifications, n)
	return app, n, nil
}

type countingSignal struct {
	mu    sync.Mutex
	count int
}

func (s *countingSignal) Nudge() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

func (s *countingSignal) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type archivedExport struct {
	applicationID int64
	contentType   string
	data          []byte
}

type memoryArchive struct {
	objects map[string]archivedExport
	err     error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{objects: map[string]archivedExport{}}
}

func (a *memoryArchive) ArchiveExport(_ context.Context, applicationID int64, filename, contentType string, data []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.objects[filename] = archivedExport{applicationID: applicationID, contentType: contentType, data: data}
	return "exports/" + filename, nil
}

type stubRenderer struct {
	data []byte
}

func (s stubRenderer) Render(context.Context, types.Application) ([]byte, error) {
	return s.data, nil
}

var errBoom = errors.New("boom")

var (
	adminIdentity    = Identity{UserID: 1, Role: types.RoleAdmin}
	employeeIdentity = Identity{UserID: 2, Role: types.RoleEmployee}
)

func sampleApplication() types.Application {
	return types.Application{
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Phone:           "555-0100",
		Address:         "1 Main St",
		CityStateZip:    "Springfield, IL 62701",
		PositionDesired: "Caregiver",
		Signature:       "Jane Doe",
		SubmittedAt:     time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}
