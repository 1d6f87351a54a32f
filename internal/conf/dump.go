package conf

import (
	"io"

	"gopkg.in/yaml.v3"
)

// redacted replaces secrets in dumped settings
const redacted = "[REDACTED]"

// WriteYAML writes the effective settings to w. Passwords and the Sentry DSN
// are replaced when set.
func WriteYAML(w io.Writer, settings *Settings) error {
	out := *settings
	if out.MQTT.Password != "" {
		out.MQTT.Password = redacted
	}
	if out.Output.MySQL.Password != "" {
		out.Output.MySQL.Password = redacted
	}
	if out.Sentry.DSN != "" {
		out.Sentry.DSN = redacted
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return err
	}
	return enc.Close()
}
