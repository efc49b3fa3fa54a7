package middleware

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/surveybot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware logs a single receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()

		attrs := []slog.Attr{
			slog.String("event", "update.received"),
			slog.Int("update_id", upd.ID),
		}
		if user := c.Sender(); user != nil {
			attrs = append(attrs, slog.Int64("user_id", user.ID))
			if user.Username != "" {
				attrs = append(attrs, slog.String("username", limit(user.Username, 64)))
			}
		}
		switch {
		case upd.Callback != nil:
			attrs = append(attrs, slog.String("kind", "callback"),
				slog.String("payload", limit(upd.Callback.Data, 256)))
		case upd.Message != nil:
			attrs = append(attrs, slog.String("kind", "message"),
				slog.String("payload", limit(c.Text(), 256)))
		}

		logger.TG.LogAttrs(context.Background(), slog.LevelDebug, "", attrs...)
		return next(c)
	}
}

func limit(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
