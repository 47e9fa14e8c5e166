// Package config loads, normalizes, and validates feedrelay configuration.
//
// Configuration is TOML, resolved from an explicit path, the user config
// directory, or ./feedrelay.toml, in that order. Secrets fall back to the
// environment variables the bot has always been deployed with, so a config
// file is optional for credentials. Default() holds every repository default
// and Load applies normalization (path expansion, trimming) before Validate.
package config
