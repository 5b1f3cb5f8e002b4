package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
)

// RunLocker serializes dispatcher runs. Two overlapping runs promoting the
// same events is harmless, but two runs claiming the same user's batch would
// double-send, so the whole run holds one lock.
type RunLocker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

type RunLogger interface {
	AppendRun(ctx context.Context, runAt time.Time, userIDs []string) error
}

// AdvisoryLock implements RunLocker with a Postgres session advisory lock.
type AdvisoryLock struct {
	Key int64
}

// RunLockKey is the advisory lock key reserved for dispatcher runs.
const RunLockKey int64 = 874_120_553

func (l AdvisoryLock) TryLock(ctx context.Context) (bool, error) {
	var ok bool
	err := db.DB.WithContext(ctx).Raw(`SELECT pg_try_advisory_lock(?)`, l.Key).Scan(&ok).Error
	return ok, err
}

func (l AdvisoryLock) Unlock(ctx context.Context) error {
	return db.DB.WithContext(ctx).Exec(`SELECT pg_advisory_unlock(?)`, l.Key).Error
}

type RunResult struct {
	UsersNotified int `json:"users_notified"`
}

// DeliveryError reports a run aborted mid-delivery: which user's batch
// failed, how many batches completed before it, and the underlying cause.
type DeliveryError struct {
	UserID    string
	Completed int
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sent %d batches prior to this error (user %s): %v", e.Completed, e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

var ErrRunInProgress = fmt.Errorf("a notification run is already in progress")

// Dispatcher drives one synchronous run of the pipeline: promote, then
// repeatedly assemble/render/send/mark until drained or a batch fails.
type Dispatcher struct {
	Promoter  *Promoter
	Assembler *Assembler
	Renderer  Renderer
	Mailer    Mailer
	Queue     QueueStore
	RunLog    RunLogger
	Locker    RunLocker
	Subject   string
}

// Run executes a full notification run. Fail-fast by design: the first
// render or transport failure aborts the run with the completed count; the
// failing user's entries stay unsent and the next scheduled run retries the
// batch in full. Already-sent batches are never rolled back.
func (d *Dispatcher) Run(ctx context.Context) (RunResult, error) {
	ok, err := d.Locker.TryLock(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return RunResult{}, ErrRunInProgress
	}
	defer func() {
		if err := d.Locker.Unlock(ctx); err != nil {
			log.Printf("[notify] failed to release run lock: %v", err)
		}
	}()

	runAt := time.Now()

	// Promotion failures abort the run but need no cleanup: promotion is
	// idempotent and the next run picks the same pending events back up.
	if err := d.Promoter.Promote(ctx); err != nil {
		d.appendRun(ctx, runAt, nil)
		return RunResult{}, fmt.Errorf("promote pending events: %w", err)
	}

	var notified []string
	for {
		batch, err := d.Assembler.NextBatch(ctx)
		if err != nil {
			d.appendRun(ctx, runAt, notified)
			return RunResult{UsersNotified: len(notified)},
				&DeliveryError{Completed: len(notified), Err: err}
		}
		if batch == nil {
			d.appendRun(ctx, runAt, notified)
			log.Printf("[notify] run complete: %d users notified", len(notified))
			return RunResult{UsersNotified: len(notified)}, nil
		}

		htmlBody, textBody, err := d.Renderer.Render(batch)
		if err != nil {
			d.appendRun(ctx, runAt, notified)
			return RunResult{UsersNotified: len(notified)},
				&DeliveryError{UserID: batch.UserID, Completed: len(notified), Err: err}
		}

		if err := d.Mailer.Send(ctx, batch.UserEmail, d.Subject, textBody, htmlBody); err != nil {
			d.appendRun(ctx, runAt, notified)
			return RunResult{UsersNotified: len(notified)},
				&DeliveryError{UserID: batch.UserID, Completed: len(notified), Err: err}
		}

		if err := d.Queue.MarkSent(ctx, batch.EntryIDs, time.Now()); err != nil {
			// The mail went out but the entries could not be marked; abort so
			// the operator sees it. The next run re-sends this batch, which is
			// the at-least-once side of the contract.
			d.appendRun(ctx, runAt, notified)
			return RunResult{UsersNotified: len(notified)},
				&DeliveryError{UserID: batch.UserID, Completed: len(notified), Err: err}
		}

		notified = append(notified, batch.UserID)
		log.Printf("[notify] sent batch to user %s (%d events)", batch.UserID, len(batch.Events))
	}
}

// Preview runs promotion plus assembly and rendering for one user without
// marking anything sent. Returns empty strings when the user has no unsent
// entries.
func (d *Dispatcher) Preview(ctx context.Context, userID string) (htmlBody, textBody string, err error) {
	if err := d.Promoter.Promote(ctx); err != nil {
		return "", "", fmt.Errorf("promote pending events: %w", err)
	}

	batch, err := d.Assembler.BatchFor(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if batch == nil {
		return "", "", nil
	}
	return d.Renderer.Render(batch)
}

// appendRun records the run row even for aborted runs; failures here are
// logged rather than masking the run's primary outcome.
func (d *Dispatcher) appendRun(ctx context.Context, runAt time.Time, userIDs []string) {
	if err := d.RunLog.AppendRun(ctx, runAt, userIDs); err != nil {
		log.Printf("[notify] failed to append notification log: %v", err)
	}
}
