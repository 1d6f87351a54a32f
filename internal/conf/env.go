// conf/env.go environment variable overrides
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding maps a config key to its environment variable
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// getEnvBindings returns every supported LANEWATCH_* override
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "LANEWATCH_DEBUG", validateEnvBool},
		{"main.name", "LANEWATCH_NAME", nil},
		{"camera.device", "LANEWATCH_CAMERA_DEVICE", nil},
		{"trigger.cooldown", "LANEWATCH_TRIGGER_COOLDOWN", validateEnvDuration},
		{"output.portlabel", "LANEWATCH_PORT_LABEL", nil},
		{"output.csv.path", "LANEWATCH_CSV_PATH", nil},
		{"output.mysql.password", "LANEWATCH_MYSQL_PASSWORD", nil},
		{"archive.path", "LANEWATCH_ARCHIVE_PATH", nil},
		{"mqtt.broker", "LANEWATCH_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "LANEWATCH_MQTT_USERNAME", nil},
		{"mqtt.password", "LANEWATCH_MQTT_PASSWORD", nil},
		{"mqtt.triggertopic", "LANEWATCH_MQTT_TOPIC", nil},
		{"poll.url", "LANEWATCH_POLL_URL", validateEnvURL},
		{"sentry.dsn", "LANEWATCH_SENTRY_DSN", nil},
		{"logging.default_level", "LANEWATCH_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars binds every override and validates the ones that are set.
// Invalid values are reported together.
func bindEnvVars() error {
	var warnings []string

	for _, b := range getEnvBindings() {
		if err := viper.BindEnv(b.ConfigKey, b.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: failed to bind: %v", b.EnvVar, err))
			continue
		}
		if b.Validate == nil {
			continue
		}
		if value, ok := os.LookupEnv(b.EnvVar); ok && value != "" {
			if err := b.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s=%q: %v", b.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be a boolean")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 10s")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL needs a scheme and host")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown log level")
}
