package keyboard

import "testing"

func TestInlineButtonsRows(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "A", Unique: "answer", Data: "A"}, {Text: "B", Unique: "answer", Data: "B"}},
		[]InlineBtn{{Text: "Next", Unique: "answer", Data: "__next__"}},
	)
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("keyboard rows = %d, want 2", len(markup.InlineKeyboard))
	}
	if len(markup.InlineKeyboard[0]) != 2 || len(markup.InlineKeyboard[1]) != 1 {
		t.Fatal("unexpected row widths")
	}
	if markup.InlineKeyboard[0][0].Text != "A" {
		t.Fatalf("button text = %q, want A", markup.InlineKeyboard[0][0].Text)
	}
}
