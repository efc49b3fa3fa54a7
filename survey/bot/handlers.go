// Package bot translates Telegram updates into conversation engine events.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/surveybot/core/logger"
	coretelegram "github.com/m3rciful/surveybot/core/telegram"
	"github.com/m3rciful/surveybot/survey/engine"
	"github.com/m3rciful/surveybot/survey/storage"
	"log/slog"
)

const (
	busyText      = "The bot is busy right now, please try again in a moment."
	noAnswersText = "No answers recorded yet."
	loadFailText  = "Couldn't load your answers, please try again."
)

// Routes wires the survey conversation endpoints.
func Routes(eng *engine.Engine, store *storage.Responses) []coretelegram.Route {
	return []coretelegram.Route{
		{Endpoint: "/start", Handler: onStart(eng)},
		{Endpoint: "/cancel", Handler: onCancel(eng)},
		{Endpoint: "/answers", Handler: onAnswers(store)},
		{Endpoint: "\f" + answerUnique, Handler: onAnswer(eng)},
		{Endpoint: tele.OnCallback, Handler: onUnknownCallback},
	}
}

// Commands lists the entries published to the Telegram command menu.
func Commands() []tele.Command {
	return []tele.Command{
		{Text: "/start", Description: "Begin the survey"},
		{Text: "/cancel", Description: "Abort the survey"},
		{Text: "/answers", Description: "Show your recorded answers"},
	}
}

func onStart(eng *engine.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		return dispatch(c, eng, engine.Start(c.Sender().ID))
	}
}

func onCancel(eng *engine.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		return dispatch(c, eng, engine.Cancel(c.Sender().ID))
	}
}

func onAnswer(eng *engine.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		// Acknowledge the button press right away; the engine replies on
		// its own schedule.
		_ = c.Respond()
		return dispatch(c, eng, engine.Select(c.Sender().ID, cb.Data))
	}
}

func onAnswers(store *storage.Responses) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID
		rows, err := store.ByUser(context.Background(), userID)
		if err != nil {
			logger.TG.Error("answers lookup failed",
				slog.String("event", "tg.answers"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			return c.Send(loadFailText)
		}
		if len(rows) == 0 {
			return c.Send(noAnswersText)
		}
		var b strings.Builder
		for _, row := range rows {
			fmt.Fprintf(&b, "%s: %s\n", row.Question, row.Answer)
		}
		return c.Send(b.String())
	}
}

func onUnknownCallback(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
}

func dispatch(c tele.Context, eng *engine.Engine, ev engine.Event) error {
	if err := eng.Dispatch(ev); err != nil {
		logger.TG.Warn("dispatch failed",
			slog.String("event", "tg.dispatch"),
			slog.String("kind", string(ev.Kind)),
			slog.Int64("user_id", ev.UserID),
			slog.String("err", err.Error()),
		)
		if errors.Is(err, engine.ErrQueueFull) {
			return c.Send(busyText)
		}
		return err
	}
	return nil
}
