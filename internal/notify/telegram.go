package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"smarttask/internal/task"
	logx "smarttask/pkg/logx"
)

// TelegramConfig configures the supplementary telegram channel.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// Telegram sends compact reminder texts to a single chat. The bot is
// send-only: no poller, no handlers.
type Telegram struct {
	bot    *tele.Bot
	chatID int64
	log    logx.Logger
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is not set")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: cfg.ChatID, log: log}, nil
}

func (t *Telegram) Channel() string { return "telegram" }

func (t *Telegram) SendReminder(ctx context.Context, tk task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(tele.ChatID(t.chatID), reminderText(tk), &tele.SendOptions{DisableWebPagePreview: true})
	return err
}

func reminderText(tk task.Task) string {
	var b strings.Builder
	switch tk.Priority {
	case task.PriorityHigh:
		b.WriteString("🚨 ")
	default:
		b.WriteString("⏰ ")
	}
	fmt.Fprintf(&b, "Reminder: %s", tk.Description)
	if due, ok := tk.Due(); ok {
		fmt.Fprintf(&b, "\nDue: %s", due.Format("Mon, Jan 2 15:04"))
	}
	if tk.Location != "" {
		fmt.Fprintf(&b, "\nLocation: %s", tk.Location)
	}
	return b.String()
}
