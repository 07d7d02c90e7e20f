// Package sysutil holds process-level helpers shared by the entrypoint and
// the configuration layer.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel applies the LOG_LEVEL setting to zerolog's global level.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// IsTruthy reports whether a switch value reads as enabled. Deployment
// files for this service predate it and carry Spanish switch values, so
// "si", "sí", and "activo" count alongside the usual English forms.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on", "si", "sí", "activo":
		return true
	default:
		return false
	}
}

// IsFalsy reports whether a switch value reads as explicitly disabled.
// Values that are neither truthy nor falsy (typos, blanks) let callers keep
// their configured default instead of guessing.
func IsFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off", "inactivo":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first value that is not blank. The config layer
// uses it to read current environment variable names with a fallback to the
// names the previous deployment used.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
