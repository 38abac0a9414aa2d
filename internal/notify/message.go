package notify

import "fmt"

// Level is the severity of a notification.
type Level int

const (
	Info Level = iota
	Warning
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Icon is prefixed to the notification text.
func (l Level) Icon() string {
	switch l {
	case Info:
		return "ℹ️"
	case Warning:
		return "⚠️"
	default:
		return ""
	}
}

// Message is a single notification.
type Message struct {
	Level Level
	Host  string
	Body  string
}

// Text renders the message as delivered to the webhook.
func (m Message) Text() string {
	return fmt.Sprintf("%s [%s] Server Notification\n%s", m.Level.Icon(), m.Host, m.Body)
}
