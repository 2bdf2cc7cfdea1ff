package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amu-events/server/internal/audit"
	"github.com/rs/zerolog"
)

type stubEventRepo struct {
	mu     sync.Mutex
	events map[string]*Event

	registrants []string
	deleted     []string
}

func newStubEventRepo(seed ...*Event) *stubEventRepo {
	r := &stubEventRepo{events: map[string]*Event{}}
	for _, e := range seed {
		r.events[e.ID] = e
	}
	return r
}

func (r *stubEventRepo) List(_ context.Context) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, nil
}

func (r *stubEventRepo) Get(_ context.Context, id string) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (r *stubEventRepo) Create(_ context.Context, params CreateParams) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &Event{
		ID:             "evt-1",
		Title:          params.Title,
		Description:    params.Description,
		Date:           params.Date,
		Location:       params.Location,
		MaxSpots:       params.MaxSpots,
		CreatorID:      params.CreatorID,
		RemainingSpots: params.MaxSpots,
	}
	r.events[e.ID] = e
	return e, nil
}

func (r *stubEventRepo) Update(_ context.Context, id string, params UpdateParams) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Title = params.Title
	e.Description = params.Description
	e.Date = params.Date
	e.Location = params.Location
	e.MaxSpots = params.MaxSpots
	copied := *e
	return &copied, nil
}

func (r *stubEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return ErrNotFound
	}
	delete(r.events, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubEventRepo) RegistrantEmails(_ context.Context, _ string) ([]string, error) {
	return r.registrants, nil
}

type stubDirectory struct{ admins []string }

func (d stubDirectory) AdminEmails(_ context.Context) ([]string, error) {
	return d.admins, nil
}

type recordingNotifier struct {
	created chan struct{}
	updated chan []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		created: make(chan struct{}, 1),
		updated: make(chan []string, 1),
	}
}

func (n *recordingNotifier) SendEventCreated(_ context.Context, _ *Event, _ []string) error {
	n.created <- struct{}{}
	return nil
}

func (n *recordingNotifier) SendEventUpdated(_ context.Context, _ *Event, changes []string, _, _ []string) error {
	n.updated <- changes
	return nil
}

func newTestEventService(repo Repository, notifier Notifier) *Service {
	return NewService(repo, stubDirectory{admins: []string{"admin@univ-amu.fr"}}, notifier,
		audit.NewLogger(zerolog.Nop()), zerolog.Nop())
}

func baseEvent() *Event {
	return &Event{
		ID:          "evt-1",
		Title:       "Campus Tour",
		Description: "Guided tour",
		Date:        time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		Location:    "Luminy",
		MaxSpots:    30,
		CreatorID:   "u1",
	}
}

func TestCreate_RejectsZeroCapacity(t *testing.T) {
	svc := newTestEventService(newStubEventRepo(), newRecordingNotifier())

	_, err := svc.Create(context.Background(), CreateParams{Title: "X", MaxSpots: 0, CreatorID: "u1"})
	if !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
}

func TestCreate_NotifiesAdmins(t *testing.T) {
	notifier := newRecordingNotifier()
	svc := newTestEventService(newStubEventRepo(), notifier)

	event, err := svc.Create(context.Background(), CreateParams{
		Title:     "Campus Tour",
		Date:      time.Now().Add(48 * time.Hour),
		Location:  "Luminy",
		MaxSpots:  30,
		CreatorID: "u1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if event.ID == "" {
		t.Error("expected an id")
	}

	select {
	case <-notifier.created:
	case <-time.After(2 * time.Second):
		t.Fatal("admin notification was not dispatched")
	}
}

func TestUpdate_CreatorAllowed(t *testing.T) {
	repo := newStubEventRepo(baseEvent())
	notifier := newRecordingNotifier()
	svc := newTestEventService(repo, notifier)

	updated, err := svc.Update(context.Background(), "evt-1", UpdateParams{
		Title:       "Campus Tour 2.0",
		Description: "Guided tour",
		Date:        time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		Location:    "Luminy",
		MaxSpots:    30,
	}, Actor{ID: "u1", Role: "USER"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Campus Tour 2.0" {
		t.Errorf("title not updated: %s", updated.Title)
	}

	select {
	case changes := <-notifier.updated:
		if len(changes) != 1 {
			t.Errorf("expected exactly the title change, got %v", changes)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update notification was not dispatched")
	}
}

func TestUpdate_AdminAllowed(t *testing.T) {
	repo := newStubEventRepo(baseEvent())
	svc := newTestEventService(repo, newRecordingNotifier())

	_, err := svc.Update(context.Background(), "evt-1", UpdateParams{
		Title:       "Campus Tour",
		Description: "Guided tour",
		Date:        time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		Location:    "Luminy",
		MaxSpots:    30,
	}, Actor{ID: "someone-else", Role: "ADMIN"})
	if err != nil {
		t.Fatalf("admin should be allowed: %v", err)
	}
}

func TestUpdate_StrangerForbidden(t *testing.T) {
	repo := newStubEventRepo(baseEvent())
	svc := newTestEventService(repo, newRecordingNotifier())

	_, err := svc.Update(context.Background(), "evt-1", UpdateParams{
		Title:    "Hijacked",
		MaxSpots: 30,
	}, Actor{ID: "stranger", Role: "USER"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdate_NoChangesNoNotification(t *testing.T) {
	repo := newStubEventRepo(baseEvent())
	notifier := newRecordingNotifier()
	svc := newTestEventService(repo, notifier)

	_, err := svc.Update(context.Background(), "evt-1", UpdateParams{
		Title:       "Campus Tour",
		Description: "Guided tour",
		Date:        time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		Location:    "Luminy",
		MaxSpots:    30,
	}, Actor{ID: "u1", Role: "USER"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	select {
	case changes := <-notifier.updated:
		t.Fatalf("no notification expected for identical update, got %v", changes)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUpdate_UnknownEvent(t *testing.T) {
	svc := newTestEventService(newStubEventRepo(), newRecordingNotifier())

	_, err := svc.Update(context.Background(), "ghost", UpdateParams{Title: "X", MaxSpots: 5}, Actor{ID: "u1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newStubEventRepo(baseEvent())
	svc := newTestEventService(repo, newRecordingNotifier())

	if err := svc.Delete(context.Background(), "evt-1", "a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "evt-1" {
		t.Errorf("delete not recorded: %v", repo.deleted)
	}

	if err := svc.Delete(context.Background(), "evt-1", "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
