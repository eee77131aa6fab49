package main

import (
	"time"

	"github.com/glennswest/ociclient/pkg/registry"
)

// newRegistryClient builds a registry.Client for cfg.Registry. Static
// Basic credentials take priority when configured; otherwise ocictl
// falls back to the Docker Hub bearer-token flow seeded from
// DOCKER_USERNAME/DOCKER_PASSWORD, so anonymous pulls of public images
// still work with no configuration at all.
func newRegistryClient(state *appState) *registry.Client {
	cfg := state.cfg.Registry

	var auth registry.Auth
	if cfg.Username != "" {
		auth = registry.BasicAuth(cfg.Username, cfg.Password)
	} else {
		auth = registry.DockerHubAuthFromEnv()
	}

	opts := []registry.Option{
		registry.WithAuth(auth),
		registry.WithLogger(state.log),
	}
	if cfg.TTLSecs > 0 {
		opts = append(opts, registry.WithTTL(time.Duration(cfg.TTLSecs)*time.Second))
	}

	return registry.New(cfg.Hostname, opts...)
}

// splitImageRef splits "name:tag" into (name, tag), defaulting tag to
// "latest" when omitted.
func splitImageRef(ref string) (name, tag string) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			return ref[:i], ref[i+1:]
		}
		if ref[i] == '/' {
			break
		}
	}
	return ref, "latest"
}
