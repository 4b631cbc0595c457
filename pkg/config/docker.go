package config

import (
	"os"
	"sync"
)

var (
	dockerCheck sync.Once
	inDocker    bool
)

// IsRunningInDocker reports whether the process is inside a Docker
// container, detected by the /.dockerenv marker. Cached after the first
// call.
func IsRunningInDocker() bool {
	dockerCheck.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	return inDocker
}

// ResolveHostForDocker adjusts a datasource host for containerized runs.
// A loopback address refers to the container itself, not the machine the
// operator's database runs on; host.docker.internal reaches the host.
// Everything else, and everything outside a container, passes through.
func ResolveHostForDocker(host string) string {
	if host != "localhost" && host != "127.0.0.1" {
		return host
	}
	if !IsRunningInDocker() {
		return host
	}
	return "host.docker.internal"
}
