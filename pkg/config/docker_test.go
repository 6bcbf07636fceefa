package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHostForDocker_OutsideDocker(t *testing.T) {
	if IsRunningInDocker() {
		t.Skip("running inside Docker")
	}

	// Outside a container nothing is rewritten.
	assert.Equal(t, "localhost:9010", ResolveHostForDocker("localhost:9010"))
	assert.Equal(t, "", ResolveHostForDocker(""))
	assert.Equal(t, "emulator:9010", ResolveHostForDocker("emulator:9010"))
}

func TestResolveHostForDocker_InsideDocker(t *testing.T) {
	if !IsRunningInDocker() {
		t.Skip("not running inside Docker")
	}

	assert.Equal(t, "host.docker.internal:9010", ResolveHostForDocker("localhost:9010"))
	assert.Equal(t, "host.docker.internal:9010", ResolveHostForDocker("127.0.0.1:9010"))
	assert.Equal(t, "host.docker.internal", ResolveHostForDocker("localhost"))
	assert.Equal(t, "emulator:9010", ResolveHostForDocker("emulator:9010"))
}
