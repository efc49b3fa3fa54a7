package engine

import (
	"context"
	"errors"
)

// Kind discriminates inbound conversation events.
type Kind string

const (
	// KindStart begins a survey session (/start).
	KindStart Kind = "start"
	// KindCancel aborts a survey session (/cancel).
	KindCancel Kind = "cancel"
	// KindSelect carries an inline keyboard selection.
	KindSelect Kind = "select"
)

// ContinueToken is the distinguished selection value that ends multi-select
// collection for the current question. It is never recorded as an answer.
const ContinueToken = "__next__"

// Event is one inbound conversation event from the transport adapter.
type Event struct {
	Kind   Kind
	UserID int64
	// Token holds the selected option label for KindSelect events.
	Token string
}

// Start builds a start event for the given user.
func Start(userID int64) Event {
	return Event{Kind: KindStart, UserID: userID}
}

// Cancel builds a cancel event for the given user.
func Cancel(userID int64) Event {
	return Event{Kind: KindCancel, UserID: userID}
}

// Select builds a selection event carrying the chosen token.
func Select(userID int64, token string) Event {
	return Event{Kind: KindSelect, UserID: userID, Token: token}
}

// Message is one outbound delivery produced by a transition.
type Message struct {
	Text string
	// Groups holds option labels chunked into display rows. A nil Groups
	// means a plain text message; a non-nil one renders a choice keyboard.
	Groups [][]string
	// Multiple tells the prompter to offer the continue control alongside
	// the choices.
	Multiple bool
}

// Prompter delivers outbound messages to a user. Implemented by the
// Telegram adapter; the engine never assumes anything about the transport
// beyond these two calls.
type Prompter interface {
	SendText(userID int64, text string) error
	SendPrompt(userID int64, msg Message) error
}

// Recorder persists accepted answers.
type Recorder interface {
	Store(ctx context.Context, userID int64, question, answer string) error
}

var (
	// ErrNoActiveQuestion signals a selection event with no question in
	// flight: a protocol violation, not a crash.
	ErrNoActiveQuestion = errors.New("engine: selection with no active question")
	// ErrQueueFull is returned by Dispatch when the event queue is saturated.
	ErrQueueFull = errors.New("engine: event queue full")
	// ErrStopped is returned by Dispatch after the engine loop has exited.
	ErrStopped = errors.New("engine: stopped")
)
