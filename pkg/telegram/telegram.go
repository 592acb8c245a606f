// Package telegram wraps a telebot bot: one control chat for notifications
// and commands, plus any number of alert chats whose messages feed the
// parser together with their receipt time.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"
)

type Bot struct {
	bot      *tb.Bot
	chat     *tb.Chat
	boot     time.Time
	messages chan string
}

func New(token string, controlChatID int) (*Bot, error) {
	b, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create bot: %w", err)
	}
	chat, err := b.ChatByID(strconv.Itoa(controlChatID))
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create chat %d: %w", controlChatID, err)
	}
	bot := &Bot{
		bot:      b,
		chat:     chat,
		boot:     time.Now(),
		messages: make(chan string, 100),
	}
	return bot, nil
}

// HandleAlerts feeds every new message of the alert chat to handler along
// with its receipt time. Replies are skipped when skipReply is set, since
// alert channels use replies for trade follow-ups rather than new setups.
func (b *Bot) HandleAlerts(chatID int64, skipReply bool, handler func(text string, at time.Time)) {
	b.bot.Handle(tb.OnText, func(m *tb.Message) {
		if m.Chat.ID != chatID && m.Chat.ID != b.chat.ID {
			return
		}
		if m.Time().Before(b.boot) {
			return
		}
		if m.IsReply() && skipReply {
			return
		}
		handler(m.Text, m.Time())
	})
}

func (b *Bot) HandleCommand(command string, handler func(string)) {
	b.bot.Handle(fmt.Sprintf("/%s", command), func(m *tb.Message) {
		if m.Chat.ID != b.chat.ID {
			return
		}
		if m.Time().Before(b.boot) {
			return
		}
		handler(m.Payload)
	})
}

// Run pumps queued notifications to the control chat until the context is
// canceled, pacing sends to stay under the rate limit.
func (b *Bot) Run(ctx context.Context) error {
	go b.bot.Start()
	defer b.bot.Stop()
	defer b.bot.Send(b.chat, "🛑 bot stopping")
	var msg string
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg = <-b.messages:
		}
		opts := tb.ModeDefault
		if strings.Contains(msg, "`") {
			opts = tb.ModeMarkdown
		}
		if _, err := b.bot.Send(b.chat, msg, opts); err != nil {
			log.Println(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Print logs locally and queues the same line for the control chat.
func (b *Bot) Print(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	log.Print(msg)
	b.messages <- msg
}
