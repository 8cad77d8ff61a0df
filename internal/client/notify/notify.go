// Package notify delivers transient user-facing notifications, the terminal
// and message-bus equivalent of a toast.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophpantry/internal/logging"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Notifier never blocks on user interaction; implementations report delivery
// problems through the returned error only.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications as structured log lines.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Variant == VariantDestructive {
		l.log.Warn(ctx, n.Title, "description", n.Description)
	} else {
		l.log.Info(ctx, n.Title, "description", n.Description)
	}
	return nil
}

// WriterNotifier prints one line per notification, used by the REPL.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (p *WriterNotifier) Notify(_ context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := "*"
	if n.Variant == VariantDestructive {
		mark = "!"
	}
	_, err := fmt.Fprintf(p.w, "[%s] %s: %s\n", mark, n.Title, n.Description)
	return err
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, x := range m {
		if x == nil {
			continue
		}
		if err := x.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops notifications.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }
