// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with credentials scrubbed
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	title := generateErrorTitle(ee)
	level := getErrorLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_title", title)
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessage(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle builds "Component Category Operation" for Sentry grouping
func generateErrorTitle(ee *EnhancedError) string {
	var parts []string
	if c := ee.GetComponent(); c != "" && c != ComponentUnknown {
		parts = append(parts, titleCase(c))
	}
	parts = append(parts, formatCategoryForTitle(ee.Category))
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(op))
		for i, w := range words {
			words[i] = titleCase(w)
		}
		parts = append(parts, strings.Join(words, " "))
	}
	return strings.Join(parts, " ")
}

// formatCategoryForTitle converts error categories to human-readable titles
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryCamera:
		return "Camera Error"
	case CategoryImageProcessing:
		return "Image Processing Error"
	case CategoryOCR:
		return "OCR Error"
	case CategoryPersistence:
		return "Persistence Error"
	case CategoryMQTTConnection:
		return "MQTT Connection Error"
	case CategoryMQTTPublish:
		return "MQTT Publish Error"
	case CategoryHTTP:
		return "HTTP Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryValidation:
		return "Validation Error"
	default:
		return string(category)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// getErrorLevel returns appropriate Sentry level based on category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryHTTP, CategoryMQTTConnection, CategoryMQTTPublish, CategoryTimeout:
		return sentry.LevelWarning // transient, the loops retry on their own
	case CategoryCamera, CategoryFileIO:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var (
	telemetryMu             sync.RWMutex
	globalTelemetryReporter TelemetryReporter
)

// SetTelemetryReporter sets the global telemetry reporter
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	globalTelemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	telemetryMu.RLock()
	defer telemetryMu.RUnlock()
	return globalTelemetryReporter
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var (
	// broker and poll URLs may carry credentials in userinfo
	userinfoPattern = regexp.MustCompile(`([a-z][a-z0-9+.-]*://)[^/@\s]+@`)
	queryPattern    = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	secretPattern   = regexp.MustCompile(`(?i)(password|token|dsn|secret)[=:]\S+`)
)

// scrubMessage removes credentials from messages before they leave the process
func scrubMessage(message string) string {
	scrubbed := userinfoPattern.ReplaceAllString(message, "${1}[REDACTED]@")
	scrubbed = queryPattern.ReplaceAllString(scrubbed, "$1?[REDACTED]")
	return secretPattern.ReplaceAllString(scrubbed, "$1=[REDACTED]")
}
