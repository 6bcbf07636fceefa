package config

import (
	"net"
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the tool is running inside a Docker
// container (the Playwright test runner, typically). Detection is based
// on the /.dockerenv file present in all Docker containers. The result is
// cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker rewrites a loopback emulator address to
// host.docker.internal when running inside Docker, so a containerized
// test runner can reach an emulator published on the host. Accepts bare
// hosts and host:port forms; anything else is returned unchanged.
func ResolveHostForDocker(hostport string) string {
	if hostport == "" || !IsRunningInDocker() {
		return hostport
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, ""
	}

	if host != "localhost" && host != "127.0.0.1" {
		return hostport
	}
	if port == "" {
		return "host.docker.internal"
	}
	return net.JoinHostPort("host.docker.internal", port)
}
