// validate.go contains validation logic for the configuration settings
package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the mode-independent settings and collects
// every problem into one ValidationError.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, check := range []func(*Settings) error{
		validateCameraSettings,
		validateTriggerSettings,
		validateEnhanceSettings,
		validateOCRSettings,
		validateArchiveSettings,
		validateOutputSettings,
		validateTelemetrySettings,
	} {
		if err := check(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// ValidatePushSettings checks the settings the MQTT push transport needs.
func ValidatePushSettings(settings *Settings) error {
	var problems []string

	if settings.MQTT.Broker == "" {
		problems = append(problems, "mqtt.broker is required")
	} else if u, err := url.Parse(settings.MQTT.Broker); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("mqtt.broker %q must look like tcp://host:port", settings.MQTT.Broker))
	}
	if settings.MQTT.TriggerTopic == "" {
		problems = append(problems, "mqtt.triggertopic is required")
	}
	if strings.ContainsAny(settings.MQTT.ResultTopic, "+#") {
		problems = append(problems, "mqtt.resulttopic must not contain wildcards")
	}
	if settings.MQTT.QoS < 0 || settings.MQTT.QoS > 2 {
		problems = append(problems, "mqtt.qos must be 0, 1 or 2")
	}
	if settings.MQTT.QueueSize < 1 {
		problems = append(problems, "mqtt.queuesize must be at least 1")
	}

	if len(problems) > 0 {
		return ValidationError{Errors: problems}
	}
	return nil
}

// ValidatePollSettings checks the settings the HTTP poll transport needs.
func ValidatePollSettings(settings *Settings) error {
	var problems []string

	u, err := url.Parse(settings.Poll.URL)
	if settings.Poll.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("poll.url %q must be an http(s) URL", settings.Poll.URL))
	}
	if settings.Poll.Timeout <= 0 {
		problems = append(problems, "poll.timeout must be positive")
	}
	if settings.Poll.Interval < 0 || settings.Poll.Backoff < 0 {
		problems = append(problems, "poll.interval and poll.backoff must not be negative")
	}

	if len(problems) > 0 {
		return ValidationError{Errors: problems}
	}
	return nil
}

func validateCameraSettings(settings *Settings) error {
	if strings.TrimSpace(settings.Camera.Device) == "" {
		return fmt.Errorf("camera.device is required")
	}
	if settings.Camera.DiscardFrames < 0 {
		return fmt.Errorf("camera.discardframes must not be negative")
	}
	if settings.Camera.WarmUp < 0 {
		return fmt.Errorf("camera.warmup must not be negative")
	}
	return nil
}

func validateTriggerSettings(settings *Settings) error {
	if settings.Trigger.Cooldown < 0 {
		return fmt.Errorf("trigger.cooldown must not be negative")
	}
	if strings.TrimSpace(settings.Trigger.AcceptLiteral) == "" {
		return fmt.Errorf("trigger.acceptliteral must not be empty")
	}
	return nil
}

func validateEnhanceSettings(settings *Settings) error {
	e := settings.Enhance
	if !e.Enabled {
		return nil
	}
	if e.BlurKernel < 1 || e.BlurKernel%2 == 0 {
		return fmt.Errorf("enhance.blurkernel must be a positive odd number, got %d", e.BlurKernel)
	}
	if e.BlockSize < 3 || e.BlockSize%2 == 0 {
		return fmt.Errorf("enhance.blocksize must be an odd number of at least 3, got %d", e.BlockSize)
	}
	if e.DilateKernel < 1 || e.DilateIterations < 0 {
		return fmt.Errorf("enhance.dilatekernel must be positive and enhance.dilateiterations not negative")
	}
	if e.Scale <= 0 {
		return fmt.Errorf("enhance.scale must be positive")
	}
	return nil
}

func validateOCRSettings(settings *Settings) error {
	if settings.OCR.Language == "" {
		return fmt.Errorf("ocr.language is required")
	}
	if settings.OCR.PageSegMode < 0 || settings.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.pagesegmode must be between 0 and 13")
	}
	if settings.OCR.MinConfidence < 0 || settings.OCR.MinConfidence > 100 {
		return fmt.Errorf("ocr.minconfidence must be between 0 and 100")
	}
	return nil
}

func validateArchiveSettings(settings *Settings) error {
	a := settings.Archive
	if !a.Enabled {
		return nil
	}
	if a.Path == "" {
		return fmt.Errorf("archive.path is required when archiving is enabled")
	}
	if !slices.Contains([]string{"jpg", "jpeg", "png"}, strings.ToLower(a.Format)) {
		return fmt.Errorf("archive.format must be jpg or png, got %q", a.Format)
	}
	if a.Quality < 1 || a.Quality > 100 {
		return fmt.Errorf("archive.quality must be between 1 and 100")
	}
	if a.FallbackName == "" || strings.ContainsAny(a.FallbackName, `/\`) {
		return fmt.Errorf("archive.fallbackname must be a plain file name prefix")
	}
	return nil
}

func validateOutputSettings(settings *Settings) error {
	o := settings.Output
	if o.PortLabel == "" {
		return fmt.Errorf("output.portlabel is required")
	}

	enabled := 0
	if o.CSV.Enabled {
		enabled++
		if o.CSV.Path == "" {
			return fmt.Errorf("output.csv.path is required")
		}
	}
	if o.SQLite.Enabled {
		enabled++
		if o.SQLite.Path == "" {
			return fmt.Errorf("output.sqlite.path is required")
		}
	}
	if o.MySQL.Enabled {
		enabled++
		if o.MySQL.Host == "" || o.MySQL.Database == "" {
			return fmt.Errorf("output.mysql.host and output.mysql.database are required")
		}
	}

	if enabled != 1 {
		return fmt.Errorf("exactly one of output.csv, output.sqlite and output.mysql must be enabled, got %d", enabled)
	}
	return nil
}

func validateTelemetrySettings(settings *Settings) error {
	if settings.Telemetry.Enabled && settings.Telemetry.Listen == "" {
		return fmt.Errorf("telemetry.listen is required when telemetry is enabled")
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}
