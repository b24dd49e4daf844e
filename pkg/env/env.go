package env

import "os"

// Get reads an environment variable, returning fallback when unset or
// empty. Used for the handful of knobs needed before envconfig runs.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
