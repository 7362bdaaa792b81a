package config

import (
	"os"
	"strconv"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the planner runs inside a container.
// DMP_IN_DOCKER=true|false overrides detection; otherwise /.dockerenv is checked.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		if v, ok := os.LookupEnv("DMP_IN_DOCKER"); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				isDockerResult = b
				return
			}
		}
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps loopback datasource hosts to host.docker.internal
// when running in a container, so a database on the host machine stays reachable.
// Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	return resolveLoopback(host)
}

func resolveLoopback(host string) string {
	switch host {
	case "localhost", "127.0.0.1", "::1", ".", "(local)":
		return "host.docker.internal"
	}
	return host
}
