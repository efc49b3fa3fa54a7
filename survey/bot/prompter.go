package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/surveybot/core/telegram/keyboard"
	"github.com/m3rciful/surveybot/survey/engine"
)

// answerUnique tags every survey inline button so callbacks route to the
// answer handler.
const answerUnique = "answer"

const continueLabel = "Next ➡️"

// Prompter delivers engine messages over Telegram.
type Prompter struct {
	bot *tele.Bot
}

// NewPrompter wraps a telebot instance as the engine's outbound transport.
func NewPrompter(b *tele.Bot) *Prompter {
	return &Prompter{bot: b}
}

// SendText delivers a plain text message.
func (p *Prompter) SendText(userID int64, text string) error {
	_, err := p.bot.Send(&tele.User{ID: userID}, text)
	return err
}

// SendPrompt delivers a question with its choices as an inline keyboard.
// The groups arrive pre-chunked from the engine; multi-select questions get
// an extra row holding the continue control.
func (p *Prompter) SendPrompt(userID int64, msg engine.Message) error {
	rows := make([][]keyboard.InlineBtn, 0, len(msg.Groups)+1)
	for _, group := range msg.Groups {
		row := make([]keyboard.InlineBtn, 0, len(group))
		for _, label := range group {
			row = append(row, keyboard.InlineBtn{Text: label, Unique: answerUnique, Data: label})
		}
		rows = append(rows, row)
	}
	if msg.Multiple {
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   continueLabel,
			Unique: answerUnique,
			Data:   engine.ContinueToken,
		}})
	}

	_, err := p.bot.Send(&tele.User{ID: userID}, msg.Text, keyboard.InlineButtonsRows(rows...))
	return err
}
