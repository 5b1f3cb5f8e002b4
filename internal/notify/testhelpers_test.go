package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
	"github.com/google/uuid"
)

// In-memory fakes for the pipeline's collaborator interfaces.

type fakePending struct {
	events      []PendingEvent
	consumed    []uuid.UUID
	consumeNoop bool // record Consume calls without removing, to simulate a retried run
	pendingErr  error
}

func (f *fakePending) Pending(ctx context.Context) ([]PendingEvent, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	out := make([]PendingEvent, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakePending) Consume(ctx context.Context, eventID uuid.UUID, entityType catalog.EntityType) error {
	f.consumed = append(f.consumed, eventID)
	if f.consumeNoop {
		return nil
	}
	kept := f.events[:0]
	for _, e := range f.events {
		if e.ID != eventID {
			kept = append(kept, e)
		}
	}
	f.events = kept
	return nil
}

type fakeQueue struct {
	entries   []QueueEntry
	insertErr error
	markErr   error
}

func (q *fakeQueue) InsertIgnore(ctx context.Context, entries []QueueEntry) error {
	if q.insertErr != nil {
		return q.insertErr
	}
	for _, e := range entries {
		if q.has(e.EventID, e.UserID) {
			continue
		}
		e.CreatedAt = time.Now()
		q.entries = append(q.entries, e)
	}
	return nil
}

func (q *fakeQueue) has(eventID uuid.UUID, userID string) bool {
	for _, e := range q.entries {
		if e.EventID == eventID && e.UserID == userID {
			return true
		}
	}
	return false
}

func (q *fakeQueue) NextUnsentUser(ctx context.Context) (string, error) {
	for _, e := range q.entries {
		if e.SentAt == nil {
			return e.UserID, nil
		}
	}
	return "", nil
}

func (q *fakeQueue) UnsentForUser(ctx context.Context, userID string) ([]QueueEntry, error) {
	var out []QueueEntry
	for _, e := range q.entries {
		if e.UserID == userID && e.SentAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, entryIDs []uuid.UUID, at time.Time) error {
	if q.markErr != nil {
		return q.markErr
	}
	for _, id := range entryIDs {
		for i := range q.entries {
			if q.entries[i].ID == id && q.entries[i].SentAt == nil {
				t := at
				q.entries[i].SentAt = &t
			}
		}
	}
	return nil
}

func (q *fakeQueue) unsentCount() int {
	n := 0
	for _, e := range q.entries {
		if e.SentAt == nil {
			n++
		}
	}
	return n
}

func (q *fakeQueue) entriesFor(userID string) []QueueEntry {
	var out []QueueEntry
	for _, e := range q.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type fakeHierarchy struct {
	ancestors map[uuid.UUID][]uuid.UUID
}

func (h *fakeHierarchy) Ancestors(ctx context.Context, locationID uuid.UUID) ([]uuid.UUID, error) {
	return h.ancestors[locationID], nil
}

type fakeFollows struct {
	followers map[uuid.UUID][]string
}

func (f *fakeFollows) Followers(ctx context.Context, locationIDs []uuid.UUID) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, loc := range locationIDs {
		for _, u := range f.followers[loc] {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out, nil
}

type fakeDirectory struct {
	names     map[uuid.UUID]string
	locations map[uuid.UUID]uuid.UUID
	emails    map[string]string
}

func (d *fakeDirectory) EntityName(ctx context.Context, entityType catalog.EntityType, entityID uuid.UUID) (string, error) {
	name, ok := d.names[entityID]
	if !ok {
		return "", fmt.Errorf("no entity %s", entityID)
	}
	return name, nil
}

func (d *fakeDirectory) EntityLocation(ctx context.Context, entityType catalog.EntityType, entityID uuid.UUID) (uuid.UUID, error) {
	loc, ok := d.locations[entityID]
	if !ok {
		return uuid.Nil, fmt.Errorf("no entity %s", entityID)
	}
	return loc, nil
}

func (d *fakeDirectory) UserEmail(ctx context.Context, userID string) (string, error) {
	email, ok := d.emails[userID]
	if !ok {
		return "", fmt.Errorf("no user %s", userID)
	}
	return email, nil
}

type sentMail struct {
	to, subject, text, html string
}

type fakeMailer struct {
	sent       []sentMail
	failOnCall int // 1-based call number to fail on; 0 = never fail
	calls      int
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	m.calls++
	if m.failOnCall != 0 && m.calls == m.failOnCall {
		return fmt.Errorf("smtp connection refused")
	}
	m.sent = append(m.sent, sentMail{to, subject, textBody, htmlBody})
	return nil
}

type fakeLocker struct {
	held    bool
	locks   int
	unlocks int
}

func (l *fakeLocker) TryLock(ctx context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	l.locks++
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context) error {
	l.held = false
	l.unlocks++
	return nil
}

type fakeRunLog struct {
	runs [][]string
}

func (r *fakeRunLog) AppendRun(ctx context.Context, runAt time.Time, userIDs []string) error {
	r.runs = append(r.runs, userIDs)
	return nil
}

// testWorld is the shared fixture: the US > Pennsylvania > Allegheny >
// Pittsburgh chain with a sibling Ohio, plus a handful of catalog entities.
type testWorld struct {
	us, pennsylvania, allegheny, pittsburgh, ohio uuid.UUID

	pending   *fakePending
	queue     *fakeQueue
	hierarchy *fakeHierarchy
	follows   *fakeFollows
	directory *fakeDirectory
}

func newTestWorld() *testWorld {
	w := &testWorld{
		us:           uuid.New(),
		pennsylvania: uuid.New(),
		allegheny:    uuid.New(),
		pittsburgh:   uuid.New(),
		ohio:         uuid.New(),
		pending:      &fakePending{},
		queue:        &fakeQueue{},
	}
	w.hierarchy = &fakeHierarchy{ancestors: map[uuid.UUID][]uuid.UUID{
		w.pittsburgh:   {w.allegheny, w.pennsylvania, w.us},
		w.allegheny:    {w.pennsylvania, w.us},
		w.pennsylvania: {w.us},
		w.ohio:         {w.us},
	}}
	w.follows = &fakeFollows{followers: map[uuid.UUID][]string{}}
	w.directory = &fakeDirectory{
		names:     map[uuid.UUID]string{},
		locations: map[uuid.UUID]uuid.UUID{},
		emails:    map[string]string{},
	}
	return w
}

func (w *testWorld) follow(userID string, locationID uuid.UUID) {
	w.follows.followers[locationID] = append(w.follows.followers[locationID], userID)
}

func (w *testWorld) addUser(userID, email string) {
	w.directory.emails[userID] = email
}

// addEvent registers an entity in the directory and queues a pending event
// for it, returning the event ID.
func (w *testWorld) addEvent(entityType catalog.EntityType, eventType EventType, name string, locationID uuid.UUID) uuid.UUID {
	entityID := uuid.New()
	w.directory.names[entityID] = name
	w.directory.locations[entityID] = locationID

	eventID := uuid.New()
	w.pending.events = append(w.pending.events, PendingEvent{
		ID:         eventID,
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		CreatedAt:  time.Now(),
	})
	return eventID
}

func (w *testWorld) promoter() *Promoter {
	return &Promoter{
		Pending:   w.pending,
		Queue:     w.queue,
		Hierarchy: w.hierarchy,
		Followers: w.follows,
		Directory: w.directory,
	}
}

func (w *testWorld) assembler() *Assembler {
	return &Assembler{Queue: w.queue, Directory: w.directory}
}
