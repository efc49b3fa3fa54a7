// Package engine drives the per-user survey conversation: it sequences
// questions from the catalog, records selections, and decides when a
// session is done. Events are consumed by a single dispatch loop, so the
// order of events within one session is total.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/m3rciful/surveybot/core/logger"
	"github.com/m3rciful/surveybot/survey/catalog"
	"log/slog"
)

const defaultQueueSize = 128

// Options tune engine behaviour.
type Options struct {
	// IdleTimeout evicts sessions with no activity for this long; 0 keeps
	// the 30 minute default.
	IdleTimeout time.Duration
	// QueueSize bounds the inbound event queue; 0 keeps the default.
	QueueSize int
}

// Engine owns the session table and applies events to it.
type Engine struct {
	catalog     *catalog.Catalog
	recorder    Recorder
	prompter    Prompter
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[int64]*session

	queue   chan Event
	stopped chan struct{}
}

// New constructs an engine over an immutable catalog, a recorder for
// accepted answers, and a prompter for outbound delivery.
func New(cat *catalog.Catalog, rec Recorder, p Prompter, opts Options) *Engine {
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Engine{
		catalog:     cat,
		recorder:    rec,
		prompter:    p,
		idleTimeout: idle,
		sessions:    make(map[int64]*session),
		queue:       make(chan Event, size),
		stopped:     make(chan struct{}),
	}
}

// Dispatch enqueues an event for the dispatch loop. It never blocks the
// transport: a saturated queue is reported instead.
func (e *Engine) Dispatch(ev Event) error {
	select {
	case <-e.stopped:
		return ErrStopped
	default:
	}
	select {
	case e.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run consumes events until ctx is done. Each event is fully handled
// before the next one is read, so no two events of the same session are
// ever in flight together.
func (e *Engine) Run(ctx context.Context) {
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	defer close(e.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-sweep.C:
			e.sweepIdle(now)
		case ev := <-e.queue:
			if err := e.Handle(ctx, ev); err != nil {
				logger.ENG.Warn("event failed",
					slog.String("event", "engine.handle"),
					slog.String("kind", string(ev.Kind)),
					slog.Int64("user_id", ev.UserID),
					slog.String("err", err.Error()),
				)
			}
		}
	}
}

// Handle applies one event: computes the transition, persists accepted
// answers, commits the session, then delivers outbound messages. A failed
// write leaves the session untouched and surfaces a retry prompt, so the
// user can tap the option again (at-least-once recording).
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	e.mu.Lock()
	sess := e.sessions[ev.UserID]
	e.mu.Unlock()

	out, err := transition(sess, ev, e.catalog, time.Now())
	if err != nil {
		if errors.Is(err, ErrNoActiveQuestion) {
			// Protocol violation: reset the session and tell the user how
			// to recover. Other sessions are unaffected.
			e.commit(ev.UserID, nil)
			logger.ENG.Warn("protocol violation",
				slog.String("event", "engine.protocol"),
				slog.Int64("user_id", ev.UserID),
				slog.String("token", ev.Token),
			)
			e.deliver(ev.UserID, out.sends)
			return err
		}
		return err
	}

	for _, answer := range out.persist {
		if storeErr := e.recorder.Store(ctx, ev.UserID, out.question, answer); storeErr != nil {
			if sendErr := e.prompter.SendText(ev.UserID, retryText); sendErr != nil {
				logger.ENG.Error("retry prompt delivery failed",
					slog.String("event", "engine.send"),
					slog.Int64("user_id", ev.UserID),
					slog.String("err", sendErr.Error()),
				)
			}
			return fmt.Errorf("engine: record answer: %w", storeErr)
		}
	}

	e.commit(ev.UserID, out.next)
	e.deliver(ev.UserID, out.sends)
	return nil
}

func (e *Engine) commit(userID int64, next *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if next == nil {
		delete(e.sessions, userID)
		return
	}
	e.sessions[userID] = next
}

func (e *Engine) deliver(userID int64, sends []Message) {
	for _, msg := range sends {
		var err error
		if msg.Groups != nil {
			err = e.prompter.SendPrompt(userID, msg)
		} else {
			err = e.prompter.SendText(userID, msg.Text)
		}
		if err != nil {
			logger.ENG.Error("delivery failed",
				slog.String("event", "engine.send"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	}
}

// sweepIdle evicts sessions with no activity since the idle deadline.
func (e *Engine) sweepIdle(now time.Time) {
	deadline := now.Add(-e.idleTimeout)

	e.mu.Lock()
	defer e.mu.Unlock()
	for userID, sess := range e.sessions {
		if sess.lastSeen.Before(deadline) {
			delete(e.sessions, userID)
			logger.ENG.Info("idle session evicted",
				slog.String("event", "engine.sweep"),
				slog.Int64("user_id", userID),
			)
		}
	}
}

// SessionCount reports the number of live sessions.
func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}
