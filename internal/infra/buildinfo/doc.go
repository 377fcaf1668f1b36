// Package buildinfo reports the version of calbook-cli and
// calbook-devserver.
//
// Release builds inject the values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/calbook-go/internal/infra/buildinfo.Version=v1.0.0" ./cmd/calbook-cli
//
// Builds without ldflags fall back to the VCS stamp the Go toolchain
// records in the binary.
package buildinfo
