// conf/utils.go
package conf

import (
	"os"
	"path/filepath"

	"github.com/lanewatch/lanewatch/internal/errors"
)

// defaultWritePathIndex selects the user config directory as the place a
// missing default config is created.
const defaultWritePathIndex = 1

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "lanewatch"),
		"/etc/lanewatch",
	}, nil
}
