package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays values from environment variables named in the env
// struct tags of Config. Unset variables leave the current value intact.
// Malformed values (e.g. an unparsable duration) panic, like the other
// configuration sources.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
