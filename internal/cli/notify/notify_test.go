package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminal_Notify(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{"warning with message", Notification{Type: TypeWarning, Title: "Access denied", Message: "missing permission"}, "[!] Access denied: missing permission\n"},
		{"error without message", Notification{Type: TypeError, Title: "Server error"}, "[✗] Server error\n"},
		{"unknown type", Notification{Type: "other", Title: "x"}, "[-] x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTerminal(&buf, false).Notify(tt.n)
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTerminal_Color(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf, true).Notify(Notification{Type: TypeSuccess, Title: "ok"})
	if !strings.Contains(buf.String(), "\033[32m") {
		t.Errorf("expected green marker, got %q", buf.String())
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(2)
	if _, ok := r.Last(); ok {
		t.Error("Last() on empty recorder returned ok")
	}

	r.Notify(Notification{Title: "a"})
	r.Notify(Notification{Title: "b"})
	r.Notify(Notification{Title: "c"})

	all := r.All()
	if len(all) != 2 || all[0].Title != "b" || all[1].Title != "c" {
		t.Errorf("All() = %+v, want [b c]", all)
	}
	if all[0].At.IsZero() {
		t.Error("timestamp not set")
	}
	if last, _ := r.Last(); last.Title != "c" {
		t.Errorf("Last() = %q", last.Title)
	}

	r.Reset()
	if len(r.All()) != 0 {
		t.Error("Reset() kept notifications")
	}
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(0), NewRecorder(0)
	Multi{a, nil, b}.Notify(Notification{Title: "x"})
	if len(a.All()) != 1 || len(b.All()) != 1 {
		t.Error("Multi did not fan out")
	}
}
