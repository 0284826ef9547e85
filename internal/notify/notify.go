// Package notify turns workflow outcomes into user-visible messages.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	applog "github.com/ctagard/launchfile/internal/log"
)

// Level is the severity of a message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one displayed message.
type Message struct {
	Level Level               `json:"level"`
	Code  apperrors.ErrorCode `json:"code,omitempty"`
	Text  string              `json:"text"`
	Hint  string              `json:"hint,omitempty"`
}

// String renders the message as shown to the user.
func (m Message) String() string {
	if m.Hint == "" {
		return m.Text
	}
	return m.Text + "\n  hint: " + m.Hint
}

// Notifier displays messages to the user.
type Notifier interface {
	Notify(Message)
}

// FromError builds the error message for err.
func FromError(err error) Message {
	e := apperrors.FromError(err)
	level := LevelError
	if !e.Fatal() {
		level = LevelWarning
	}
	return Message{Level: level, Code: e.Code, Text: e.Message, Hint: e.Hint}
}

// Error displays err through n.
func Error(n Notifier, err error) {
	if n == nil || err == nil {
		return
	}
	n.Notify(FromError(err))
}

// Info displays an informational message through n.
func Info(n Notifier, format string, args ...interface{}) {
	if n == nil {
		return
	}
	n.Notify(Message{Level: LevelInfo, Text: fmt.Sprintf(format, args...)})
}

// Writer prints messages to an output stream and mirrors them to the log.
type Writer struct {
	out    io.Writer
	logger *slog.Logger
	mu     sync.Mutex
}

// NewWriter creates a Writer. A nil logger disables log mirroring.
func NewWriter(out io.Writer, logger *slog.Logger) *Writer {
	return &Writer{out: out, logger: applog.OrDiscard(logger)}
}

// Notify prints m.
func (w *Writer) Notify(m Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch m.Level {
	case LevelError:
		fmt.Fprintf(w.out, "error: %s\n", m)
		w.logger.Debug("notified error", "code", m.Code, "message", m.Text)
	case LevelWarning:
		fmt.Fprintf(w.out, "warning: %s\n", m)
	default:
		fmt.Fprintln(w.out, m.String())
	}
}

// Recorder keeps messages in memory for callers that report them later.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records m.
func (r *Recorder) Notify(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Errors returns the recorded error-level messages.
func (r *Recorder) Errors() []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Level == LevelError {
			out = append(out, m)
		}
	}
	return out
}
