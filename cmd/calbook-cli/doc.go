// Command calbook-cli signs in to calbook and manages the account from a
// terminal, one command at a time or through its interactive shell.
package main
