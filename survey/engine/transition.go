package engine

import (
	"time"

	"github.com/m3rciful/surveybot/survey/catalog"
)

// User-visible texts of the survey flow.
const (
	greetingText   = "Hi! I will start asking you questions."
	completionText = "Thank you for answering all questions!"
	farewellText   = "Bye!"
	retryText      = "Couldn't save your answer, please tap it again."
	restartText    = "No question is in flight. Send /start to begin."
	pickedText     = "Already recorded."
	unknownText    = "That option doesn't belong to the current question."
)

// choicesPerRow is a display layout hint only; it has no semantic effect.
const choicesPerRow = 3

// session is the per-user conversation state. The zero value is never
// stored: a missing session means the user is awaiting /start.
type session struct {
	index    int
	picked   map[string]bool
	lastSeen time.Time
}

// outcome describes what applying one event to one session produces.
// Answers listed in persist must be written before next is committed
// (write-before-transition: a crash in between re-asks, never drops).
type outcome struct {
	// next is the committed session; nil evicts it (terminal).
	next *session
	// question and persist hold the answers accepted by this event.
	question string
	persist  []string
	// sends are delivered after the commit, in order.
	sends []Message
}

// transition is the pure state-machine step: (session, event) -> outcome.
// It touches no storage and no transport, which keeps every branch
// testable without fakes.
func transition(sess *session, ev Event, cat *catalog.Catalog, now time.Time) (outcome, error) {
	switch ev.Kind {
	case KindStart:
		fresh := &session{index: 0, picked: map[string]bool{}, lastSeen: now}
		out := askNext(fresh, cat)
		out.sends = append([]Message{{Text: greetingText}}, out.sends...)
		return out, nil

	case KindCancel:
		return outcome{next: nil, sends: []Message{{Text: farewellText}}}, nil

	case KindSelect:
		if sess == nil {
			return outcome{next: nil, sends: []Message{{Text: restartText}}}, ErrNoActiveQuestion
		}
		q, ok := cat.At(sess.index)
		if !ok {
			// A session past the end of the catalog should have been
			// evicted on completion; treat it as the same violation.
			return outcome{next: nil, sends: []Message{{Text: restartText}}}, ErrNoActiveQuestion
		}
		return selectOn(sess, q, ev.Token, cat, now)

	default:
		return outcome{next: sess}, nil
	}
}

func selectOn(sess *session, q catalog.Question, token string, cat *catalog.Catalog, now time.Time) (outcome, error) {
	if q.Multiple {
		if token == ContinueToken {
			advanced := &session{index: sess.index + 1, picked: map[string]bool{}, lastSeen: now}
			return askNext(advanced, cat), nil
		}
		if !q.HasOption(token) {
			return outcome{next: touched(sess, now), sends: []Message{{Text: unknownText}}}, nil
		}
		if sess.picked[token] {
			// De-selection is unsupported; a repeated tap is acknowledged
			// without a second row.
			return outcome{next: touched(sess, now), sends: []Message{{Text: pickedText}}}, nil
		}
		next := &session{index: sess.index, picked: copyPicked(sess.picked), lastSeen: now}
		next.picked[token] = true
		return outcome{next: next, question: q.Text, persist: []string{token}}, nil
	}

	if !q.HasOption(token) {
		return outcome{next: touched(sess, now), sends: []Message{{Text: unknownText}}}, nil
	}
	advanced := &session{index: sess.index + 1, picked: map[string]bool{}, lastSeen: now}
	out := askNext(advanced, cat)
	out.question = q.Text
	out.persist = []string{token}
	return out, nil
}

// askNext renders the session's current question, or completes the survey
// when the catalog is exhausted.
func askNext(sess *session, cat *catalog.Catalog) outcome {
	q, ok := cat.At(sess.index)
	if !ok {
		return outcome{next: nil, sends: []Message{{Text: completionText}}}
	}
	return outcome{
		next: sess,
		sends: []Message{{
			Text:     q.Text,
			Groups:   chunk(q.Options, choicesPerRow),
			Multiple: q.Multiple,
		}},
	}
}

func touched(sess *session, now time.Time) *session {
	return &session{index: sess.index, picked: copyPicked(sess.picked), lastSeen: now}
}

func copyPicked(src map[string]bool) map[string]bool {
	dst := make(map[string]bool, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func chunk(labels []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	var rows [][]string
	for i := 0; i < len(labels); i += n {
		end := i + n
		if end > len(labels) {
			end = len(labels)
		}
		rows = append(rows, labels[i:end])
	}
	return rows
}
