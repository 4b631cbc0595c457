package config

import "testing"

func TestResolveHostForDocker_NonLoopbackUnchanged(t *testing.T) {
	// Remote and already-resolved hosts pass through regardless of where
	// the process runs.
	hosts := []string{"db.internal", "192.168.1.100", "host.docker.internal"}

	for _, host := range hosts {
		if got := ResolveHostForDocker(host); got != host {
			t.Errorf("ResolveHostForDocker(%q) = %q, want unchanged", host, got)
		}
	}
}

func TestResolveHostForDocker_Loopback(t *testing.T) {
	// The rewrite depends on the environment the test runs in, so assert
	// against the detector rather than a fixed expectation.
	want := "localhost"
	if IsRunningInDocker() {
		want = "host.docker.internal"
	}

	for _, host := range []string{"localhost", "127.0.0.1"} {
		got := ResolveHostForDocker(host)
		if IsRunningInDocker() {
			if got != want {
				t.Errorf("ResolveHostForDocker(%q) = %q, want %q", host, got, want)
			}
		} else if got != host {
			t.Errorf("ResolveHostForDocker(%q) = %q, want unchanged", host, got)
		}
	}
}
