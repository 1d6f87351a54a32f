// config.go: settings struct for lanewatch and the functions to load it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// CameraSettings controls the still capture from the lane camera.
type CameraSettings struct {
	Device        string        // device index ("0"), device path or stream URL
	WarmUp        time.Duration // delay after opening the device before reading
	DiscardFrames int           // stale buffered frames thrown away before the real read
	Width         int           // requested capture width, 0 keeps the driver default
	Height        int           // requested capture height, 0 keeps the driver default
}

// TriggerSettings controls the debounce gate.
type TriggerSettings struct {
	Cooldown      time.Duration // minimum spacing between accepted triggers
	AcceptLiteral string        // payload that starts a capture, compared case-insensitively
}

// EnhanceSettings parameterizes the OCR preprocessing chain.
type EnhanceSettings struct {
	Enabled          bool    // false feeds the raw frame to OCR
	BlurKernel       int     // Gaussian blur kernel size, odd
	BlockSize        int     // adaptive threshold neighbourhood, odd
	C                float64 // constant subtracted from the neighbourhood mean
	DilateKernel     int     // rectangular dilation kernel size
	DilateIterations int     // number of dilation passes
	Scale            float64 // final upscale factor
}

// OCRSettings configures the Tesseract engine.
type OCRSettings struct {
	Language      string  // tesseract language, e.g. "eng"
	Whitelist     string  // characters the engine may emit
	PageSegMode   int     // tesseract page segmentation mode
	MinConfidence float64 // spans below this confidence (0-100) are ignored
}

// ArchiveSettings controls where captured images are written.
type ArchiveSettings struct {
	Enabled      bool   // true to keep an image of every run
	Path         string // archive directory
	Format       string // jpg or png
	Quality      int    // jpeg quality
	FallbackName string // file name prefix when no number was read
	Annotate     bool   // archive the annotated frame instead of the raw one
	SaveRaw      bool   // additionally keep the unannotated frame
}

// SQLiteSettings contains settings for the SQLite record store.
type SQLiteSettings struct {
	Enabled bool   // true to enable sqlite output
	Path    string // path to sqlite database
}

// MySQLSettings contains settings for the MySQL record store.
type MySQLSettings struct {
	Enabled      bool   // true to enable mysql output
	Username     string // username for mysql database
	Password     string // password for mysql database, ${VAR} references are expanded
	PasswordFile string // file holding the password, preferred over Password
	Database     string // database name for mysql database
	Host         string // host for mysql database
	Port         string // port for mysql database
}

// OutputSettings selects the record store.
type OutputSettings struct {
	PortLabel string // lane/port label written with every record
	CSV       struct {
		Enabled bool   // true to append records to a CSV file
		Path    string // path to the CSV file
	}
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// MQTTSettings contains settings for the push transport.
type MQTTSettings struct {
	Broker         string // MQTT (tcp://host:port)
	ClientID       string // client id, defaults to main.name
	Username       string // MQTT username
	Password       string // MQTT password, ${VAR} references are expanded
	PasswordFile   string // file holding the password, preferred over Password
	TriggerTopic   string // topic the controller publishes "start" on
	ResultTopic    string // topic extracted numbers are published on
	PublishResults bool   // true to publish every extracted number
	QoS            int    // subscribe and publish QoS
	QueueSize      int    // pending triggers buffered while a run is in progress
}

// PollSettings contains settings for the HTTP poll transport.
type PollSettings struct {
	URL      string        // status endpoint returning "start" when triggered
	Timeout  time.Duration // per-request timeout
	Interval time.Duration // pause after every completed request
	Backoff  time.Duration // pause after a failed request
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable Prometheus compatible telemetry endpoint
	Listen  string // IP address and port to listen on
}

// SentrySettings contains settings for error reporting.
type SentrySettings struct {
	Enabled bool   // true to report errors to Sentry
	DSN     string // Sentry project DSN
	Debug   bool   // true to enable sentry SDK debug output
}

// Settings contains all configuration options for lanewatch.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version    string `yaml:"-"`
	ConfigFile string `yaml:"-"` // config file actually read

	Main struct {
		Name string // node name, used as MQTT client id and in logs
	}

	Camera    CameraSettings
	Trigger   TriggerSettings
	Enhance   EnhanceSettings
	OCR       OCRSettings
	Archive   ArchiveSettings
	Output    OutputSettings
	MQTT      MQTTSettings
	Poll      PollSettings
	Telemetry TelemetrySettings
	Sentry    SentrySettings
	Logging   logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
// An empty configFile searches the default paths and creates a default
// config there when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = viper.ConfigFileUsed()

	if settings.MQTT.ClientID == "" {
		settings.MQTT.ClientID = settings.Main.Name
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to the user config
// directory and reads it back.
func createDefaultConfig(configPaths []string) error {
	configPath := filepath.Join(configPaths[defaultWritePathIndex], "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// DefaultConfigYAML returns the embedded default configuration.
func DefaultConfigYAML() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// GetSettings returns the settings loaded by the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// resolveSecrets replaces configured passwords by their resolved values.
func resolveSecrets(settings *Settings) error {
	mqttPassword, err := secrets.Resolve(settings.MQTT.PasswordFile, settings.MQTT.Password)
	if err != nil {
		return fmt.Errorf("error resolving mqtt.password: %w", err)
	}
	settings.MQTT.Password = mqttPassword

	mysqlPassword, err := secrets.Resolve(settings.Output.MySQL.PasswordFile, settings.Output.MySQL.Password)
	if err != nil {
		return fmt.Errorf("error resolving output.mysql.password: %w", err)
	}
	settings.Output.MySQL.Password = mysqlPassword
	return nil
}
