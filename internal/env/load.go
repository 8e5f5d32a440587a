package env

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file when present. Missing files are not an error so
// deployments can rely on the real environment.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, assuming environment variables are set directly.")
	}
}

// Get returns the trimmed value of key, or def when it is unset or blank.
func Get(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

// Int parses key as an integer. ok is false when the value is present but
// not a number, so callers can report it.
func Int(key string, def int) (n int, ok bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, false
	}
	return n, true
}

// Float parses key as a float64.
func Float(key string, def float64) (f float64, ok bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, false
	}
	return f, true
}

// Duration accepts Go duration strings like "10s" or "1m30s".
func Duration(key string, def time.Duration) (d time.Duration, ok bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, false
	}
	return d, true
}

func Bool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// List splits a comma separated value, dropping empty entries.
func List(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
