// Command calbook-devserver runs the in-memory calbook backend with the
// seeded accounts, for trying calbook-cli locally.
//
// Settings come from -config (YAML), then CALBOOK_DEVSERVER_* variables,
// then flags set on the command line:
//
//	addr: 127.0.0.1:8000
//	access_ttl: 1m
//	grace_via_error: true
package main
