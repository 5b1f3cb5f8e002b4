package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
)

type testPipeline struct {
	world  *testWorld
	mailer *fakeMailer
	locker *fakeLocker
	runLog *fakeRunLog
	d      *Dispatcher
}

func newTestPipeline(w *testWorld) *testPipeline {
	p := &testPipeline{
		world:  w,
		mailer: &fakeMailer{},
		locker: &fakeLocker{},
		runLog: &fakeRunLog{},
	}
	p.d = &Dispatcher{
		Promoter:  w.promoter(),
		Assembler: w.assembler(),
		Renderer:  Renderer{BaseURL: "https://atlas.example.org"},
		Mailer:    p.mailer,
		Queue:     w.queue,
		RunLog:    p.runLog,
		Locker:    p.locker,
		Subject:   "New notifications",
	}
	return p
}

// threeUserWorld sets up alice following Pittsburgh, bob following
// Pennsylvania, and carol following Ohio, with one event reaching alice and
// bob and a second reaching only carol.
func threeUserWorld() *testWorld {
	w := newTestWorld()
	w.addUser("alice", "alice@example.com")
	w.addUser("bob", "bob@example.com")
	w.addUser("carol", "carol@example.com")
	w.follow("alice", w.pittsburgh)
	w.follow("bob", w.pennsylvania)
	w.follow("carol", w.ohio)
	w.addEvent(catalog.EntityDataSource, EventApproved, "Transit Data", w.pittsburgh)
	w.addEvent(catalog.EntityDataRequest, EventComplete, "Zoning Request", w.ohio)
	return w
}

func TestRunDeliversAllBatches(t *testing.T) {
	p := newTestPipeline(threeUserWorld())

	result, err := p.d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.UsersNotified != 3 {
		t.Errorf("Expected 3 users notified, got %d", result.UsersNotified)
	}
	if len(p.mailer.sent) != 3 {
		t.Fatalf("Expected 3 mails, got %d", len(p.mailer.sent))
	}
	if p.mailer.sent[0].subject != "New notifications" {
		t.Errorf("Wrong subject: %q", p.mailer.sent[0].subject)
	}
	if p.world.queue.unsentCount() != 0 {
		t.Errorf("Expected queue drained, %d entries still unsent", p.world.queue.unsentCount())
	}
	if len(p.runLog.runs) != 1 || len(p.runLog.runs[0]) != 3 {
		t.Errorf("Expected one log row with 3 users, got %v", p.runLog.runs)
	}
	if p.locker.unlocks != 1 {
		t.Errorf("Run lock not released")
	}
}

func TestRunFailsFastOnTransportError(t *testing.T) {
	p := newTestPipeline(threeUserWorld())
	p.mailer.failOnCall = 2 // alice succeeds, bob's send fails

	result, err := p.d.Run(context.Background())
	if err == nil {
		t.Fatal("Expected delivery error, got nil")
	}

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DeliveryError, got %T: %v", err, err)
	}
	if de.UserID != "bob" {
		t.Errorf("Expected failure on bob's batch, got user %q", de.UserID)
	}
	if de.Completed != 1 {
		t.Errorf("Expected 1 completed batch before failure, got %d", de.Completed)
	}
	if result.UsersNotified != 1 {
		t.Errorf("Expected 1 user notified, got %d", result.UsersNotified)
	}

	// Alice's entries are sent; bob's and carol's stay unsent for the retry.
	for _, e := range p.world.queue.entriesFor("alice") {
		if e.SentAt == nil {
			t.Errorf("Alice's entry should be marked sent")
		}
	}
	for _, user := range []string{"bob", "carol"} {
		for _, e := range p.world.queue.entriesFor(user) {
			if e.SentAt != nil {
				t.Errorf("%s's entry should remain unsent", user)
			}
		}
	}

	// The aborted run still gets a log row, listing only alice.
	if len(p.runLog.runs) != 1 || len(p.runLog.runs[0]) != 1 || p.runLog.runs[0][0] != "alice" {
		t.Errorf("Expected aborted-run log row [alice], got %v", p.runLog.runs)
	}
	if p.locker.unlocks != 1 {
		t.Errorf("Run lock not released after failure")
	}
}

func TestRunRefusedWhileAnotherRunHoldsLock(t *testing.T) {
	p := newTestPipeline(threeUserWorld())
	p.locker.held = true

	_, err := p.d.Run(context.Background())
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("Expected ErrRunInProgress, got %v", err)
	}
	if len(p.mailer.sent) != 0 {
		t.Errorf("No mail should be sent when the lock is held")
	}
	if len(p.runLog.runs) != 0 {
		t.Errorf("No log row should be written when the lock is held")
	}
}

func TestRunAbortsWhenMarkSentFails(t *testing.T) {
	p := newTestPipeline(threeUserWorld())
	p.world.queue.markErr = errors.New("connection reset")

	result, err := p.d.Run(context.Background())
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DeliveryError, got %v", err)
	}
	if de.Completed != 0 || result.UsersNotified != 0 {
		t.Errorf("Expected 0 completed batches, got %d", de.Completed)
	}
	// The mail did go out before marking failed.
	if len(p.mailer.sent) != 1 {
		t.Errorf("Expected exactly 1 mail before abort, got %d", len(p.mailer.sent))
	}
}

func TestRepeatRunSendsNothingNew(t *testing.T) {
	p := newTestPipeline(threeUserWorld())

	if _, err := p.d.Run(context.Background()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	firstSent := make(map[string]time.Time)
	for _, e := range p.world.queue.entries {
		firstSent[e.ID.String()] = *e.SentAt
	}

	result, err := p.d.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if result.UsersNotified != 0 {
		t.Errorf("Second run should notify nobody, got %d", result.UsersNotified)
	}
	if len(p.mailer.sent) != 3 {
		t.Errorf("Second run sent extra mail: %d total", len(p.mailer.sent))
	}
	for _, e := range p.world.queue.entries {
		if !e.SentAt.Equal(firstSent[e.ID.String()]) {
			t.Errorf("SentAt rewritten on entry %s", e.ID)
		}
	}
}

func TestPreviewDoesNotMarkSent(t *testing.T) {
	p := newTestPipeline(threeUserWorld())

	htmlBody, textBody, err := p.d.Preview(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if htmlBody == "" || textBody == "" {
		t.Fatal("Expected rendered preview bodies")
	}
	if len(p.mailer.sent) != 0 {
		t.Errorf("Preview must not send mail")
	}
	if got := p.world.queue.unsentCount(); got == 0 {
		t.Errorf("Preview must leave entries unsent")
	}

	// A second preview shows the same content.
	again, _, err := p.d.Preview(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Second preview failed: %v", err)
	}
	if again != htmlBody {
		t.Errorf("Preview content changed between calls")
	}
}

func TestPreviewEmptyForUserWithNothingPending(t *testing.T) {
	p := newTestPipeline(newTestWorld())

	htmlBody, textBody, err := p.d.Preview(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if htmlBody != "" || textBody != "" {
		t.Errorf("Expected empty preview, got html=%q text=%q", htmlBody, textBody)
	}
}
