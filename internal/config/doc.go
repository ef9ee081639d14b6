// Package config loads devenv's configuration with Viper.
//
// The file is YAML, found at ./.devenv/config.yaml or
// ~/.config/devenv/config.yaml, and every key can be overridden from the
// environment with the DEVENV_ prefix (DEVENV_HTTP_PORT, DEVENV_PROBE_CACHE_TTL):
//
//	version: 1
//	transport: stdio
//	http:
//	  host: localhost
//	  port: 8080
//	probe:
//	  cache_ttl: 5m
//	project:
//	  roots: [~/dev, ~/src]
//
// Call [Init] once at startup, then [Load]. [Validate] returns every problem
// at once so `devenv config validate` can report them together.
package config
