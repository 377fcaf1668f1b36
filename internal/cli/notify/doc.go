// Package notify is the global notification surface of calbook-cli.
//
// The gateway and the commands report transient, non-blocking messages
// (access denied, rate limited, server error) through a Notifier. The
// terminal implementation prints one line per notification to stderr;
// the recorder keeps them for tests and the shell's notifications view.
package notify
