package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Type is the severity of a notification.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Notification is one transient user-facing message.
type Notification struct {
	Type    Type      `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier accepts notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

// Terminal writes notifications as single lines.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewTerminal creates a Terminal notifier writing to w.
func NewTerminal(w io.Writer, color bool) *Terminal {
	return &Terminal{w: w, color: color}
}

var markers = map[Type]string{
	TypeInfo:    "i",
	TypeSuccess: "✓",
	TypeWarning: "!",
	TypeError:   "✗",
}

var colors = map[Type]string{
	TypeInfo:    "\033[36m",
	TypeSuccess: "\033[32m",
	TypeWarning: "\033[33m",
	TypeError:   "\033[31m",
}

func (t *Terminal) Notify(n Notification) {
	marker, ok := markers[n.Type]
	if !ok {
		marker = "-"
	}
	if t.color {
		marker = colors[n.Type] + marker + "\033[0m"
	}

	line := fmt.Sprintf("[%s] %s", marker, n.Title)
	if n.Message != "" {
		line += ": " + n.Message
	}

	t.mu.Lock()
	fmt.Fprintln(t.w, line)
	t.mu.Unlock()
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewRecorder keeps at most limit notifications. Zero means unbounded.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, n)
	if r.limit > 0 && len(r.items) > r.limit {
		r.items = r.items[len(r.items)-r.limit:]
	}
}

// All returns a copy of the recorded notifications, oldest first.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset drops all recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// Multi fans out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}
