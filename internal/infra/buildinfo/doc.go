// Package buildinfo provides build information for the fwt binaries.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/fwt-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When a value is not injected, it is read from the module build
// information embedded by the Go toolchain where available.
package buildinfo
