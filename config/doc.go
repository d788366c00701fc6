// Package config loads client settings from a config file, a .env file and
// environment variables, validates them and turns them into
// [client.Option] values.
//
// Sources are applied in increasing order of precedence: the config file
// (YAML, JSON or TOML, chosen by extension), then the environment. A .env
// file only fills variables not already set in the process environment.
// Environment variables are named after the setting key, upper-cased and
// prefixed, with dots replaced by underscores:
//
//	HTTPER_BASE_URL=https://api.example.com/v1/
//	HTTPER_TIMEOUT=5s
//	HTTPER_THROTTLE_RPS=10
//	HTTPER_REDACTED_HEADERS=authorization,cookie
//
// Map settings (headers, params) can only come from the config file, and
// their keys are lower-cased on load.
package config
