// Package config loads the Options of a fan-out run from defaults, an optional
// configuration file and FANOUT_-prefixed environment variables.
package config
