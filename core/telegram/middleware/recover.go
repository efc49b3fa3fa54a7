package middleware

import (
	"runtime/debug"

	"github.com/m3rciful/surveybot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

const panicReply = "Something went wrong, use /start to begin again."

// RecoverMiddleware keeps a panicking handler from taking the bot down.
// The update that caused it is dropped after logging; other sessions keep
// running. A panicked button press is still answered so the client stops
// showing its spinner.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				var userID int64
				if sender := c.Sender(); sender != nil {
					userID = sender.ID
				}
				logger.TG.Error("panic recovered",
					slog.String("event", "tg.panic"),
					slog.Int64("user_id", userID),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				if c.Callback() != nil {
					_ = c.Respond(&tele.CallbackResponse{Text: panicReply})
				}
			}
		}()
		return next(c)
	}
}
