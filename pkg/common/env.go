package common

import "os"

// EnvOr returns the value of the environment variable key, or def when it is
// unset or empty. It is used for flag defaults.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
