package conf

import "github.com/lanewatch/lanewatch/internal/logger"

// GetLogger returns the config module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
