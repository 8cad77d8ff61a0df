package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "pantry.notifications"

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSNotifier publishes notifications as JSON so other processes (a desktop
// shell, a chat bridge) can render them.
type NATSNotifier struct {
	pub     Publisher
	subject string
	source  string
}

func NewNATSNotifier(pub Publisher, subject, source string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject, source: source}
}

// ConnectNATS dials url with a bounded connect timeout.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.Timeout(3*time.Second))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

type envelope struct {
	Notification
	Source string    `json:"source,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

func (n *NATSNotifier) Notify(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Notification: note, Source: n.source, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := nats.NewMsg(n.subject)
	msg.Data = data
	msg.Header.Set("Variant", string(note.Variant))

	if err := n.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
