package notify

import (
	"fmt"
	"strings"
	"time"

	"vpn-monitor/internal/status"
)

// TimeLayout is the timestamp format used in every message.
const TimeLayout = "2006-01-02 15:04:05"

const (
	EmojiConnected    = "✅"
	EmojiDisconnected = "❌"
	EmojiStartup      = "🚀"
	EmojiShutdown     = "⏹"
)

// Message is a notification rendered as Telegram HTML.
type Message struct {
	Emoji string
	Title string
	Lines []string
}

// Render formats the message: emoji and bold title, a blank line, then the
// body lines.
func (m Message) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>", m.Emoji, m.Title)
	if len(m.Lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(m.Lines, "\n"))
	}
	return b.String()
}

// StatusMessage reports a connectivity change observed at t.
func StatusMessage(s status.Status, t time.Time) Message {
	emoji, label := EmojiDisconnected, "ОТКЛЮЧЕНО"
	if s == status.Connected {
		emoji, label = EmojiConnected, "ПОДКЛЮЧЕНО"
	}
	return Message{
		Emoji: emoji,
		Title: "VPN AnyConnect",
		Lines: []string{
			"Статус: " + label,
			"Время: " + t.Format(TimeLayout),
		},
	}
}

// StartupMessage announces the service start and its poll interval.
func StartupMessage(interval time.Duration, t time.Time) Message {
	return Message{
		Emoji: EmojiStartup,
		Title: "VPN Monitor Service запущен",
		Lines: []string{
			fmt.Sprintf("Интервал проверки: %d сек", int(interval/time.Second)),
			"Время запуска: " + t.Format(TimeLayout),
		},
	}
}

// ShutdownMessage announces the service stop.
func ShutdownMessage(t time.Time) Message {
	return Message{
		Emoji: EmojiShutdown,
		Title: "VPN Monitor Service остановлен",
		Lines: []string{"Время остановки: " + t.Format(TimeLayout)},
	}
}
