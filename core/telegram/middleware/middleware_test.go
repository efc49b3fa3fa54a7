package middleware

import (
	"strings"
	"testing"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"
)

func TestLimitKeepsShortStrings(t *testing.T) {
	if got := limit("  hello  ", 64); got != "hello" {
		t.Fatalf("limit = %q, want hello", got)
	}
}

func TestLimitCutsOnRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 40)
	got := limit(s, 63)
	if !utf8.ValidString(got) {
		t.Fatalf("limit produced invalid UTF-8: %q", got)
	}
	if !strings.HasPrefix(s, got) {
		t.Fatalf("truncation is not a prefix: %q", got)
	}
	if len(got) != 62 {
		t.Fatalf("len = %d, want 62 (one byte short of the split rune)", len(got))
	}
}

type panicCtx struct {
	tele.Context
	responded bool
}

func (c *panicCtx) Sender() *tele.User { return &tele.User{ID: 1} }

func (c *panicCtx) Callback() *tele.Callback { return &tele.Callback{} }

func (c *panicCtx) Respond(...*tele.CallbackResponse) error {
	c.responded = true
	return nil
}

func TestRecoverMiddlewareConfinesPanic(t *testing.T) {
	handler := RecoverMiddleware(func(tele.Context) error {
		panic("boom")
	})

	ctx := &panicCtx{}
	if err := handler(ctx); err != nil {
		t.Fatalf("recovered handler returned %v, want nil", err)
	}
	if !ctx.responded {
		t.Fatal("panicked button press must still be answered")
	}
}
