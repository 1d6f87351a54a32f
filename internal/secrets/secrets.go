// Package secrets resolves credentials that are configured as ${VAR}
// references or as files, such as Docker or Kubernetes mounted secrets.
// Secret values are never logged.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lanewatch/lanewatch/internal/logger"
)

// maxFileSize caps a secret file, a password is never this large
const maxFileSize = 64 << 10

// Expand replaces ${VAR} and ${VAR:-fallback} references in s. A reference
// without a fallback to an unset or empty variable is an error naming it.
func Expand(s string) (string, error) {
	var missing []string

	out := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return ""
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variable(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// ReadFile returns the content of a secret file without trailing newlines.
// Files readable by group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret file %s is not a regular file", path)
	}
	if info.Size() > maxFileSize {
		return "", fmt.Errorf("secret file %s exceeds %d bytes", path, maxFileSize)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("secrets").Warn("secret file is readable by other users",
			logger.String("path", path),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", path, err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

// Resolve returns the secret from file when file is set, otherwise value
// with references expanded. Both empty resolves to an empty secret.
func Resolve(file, value string) (string, error) {
	if file != "" {
		return ReadFile(file)
	}
	if value == "" {
		return "", nil
	}
	return Expand(value)
}
