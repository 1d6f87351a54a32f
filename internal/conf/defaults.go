// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "lanewatch")

	viper.SetDefault("camera.device", "0")
	viper.SetDefault("camera.warmup", 3*time.Second)
	viper.SetDefault("camera.discardframes", 5)
	viper.SetDefault("camera.width", 0)
	viper.SetDefault("camera.height", 0)

	viper.SetDefault("trigger.cooldown", 10*time.Second)
	viper.SetDefault("trigger.acceptliteral", "start")

	viper.SetDefault("enhance.enabled", true)
	viper.SetDefault("enhance.blurkernel", 3)
	viper.SetDefault("enhance.blocksize", 15)
	viper.SetDefault("enhance.c", 8.0)
	viper.SetDefault("enhance.dilatekernel", 2)
	viper.SetDefault("enhance.dilateiterations", 1)
	viper.SetDefault("enhance.scale", 2.0)

	viper.SetDefault("ocr.language", "eng")
	viper.SetDefault("ocr.whitelist", "0123456789")
	viper.SetDefault("ocr.pagesegmode", 6)
	viper.SetDefault("ocr.minconfidence", 0.0)

	viper.SetDefault("archive.enabled", true)
	viper.SetDefault("archive.path", "captured_images")
	viper.SetDefault("archive.format", "jpg")
	viper.SetDefault("archive.quality", 90)
	viper.SetDefault("archive.fallbackname", "capture")
	viper.SetDefault("archive.annotate", true)
	viper.SetDefault("archive.saveraw", false)

	viper.SetDefault("output.portlabel", "CAM1")
	viper.SetDefault("output.csv.enabled", true)
	viper.SetDefault("output.csv.path", "truck_num.csv")
	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "lanewatch.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "lanewatch")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.passwordfile", "")
	viper.SetDefault("output.mysql.database", "lanewatch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("mqtt.broker", "tcp://192.168.1.22:1883")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.passwordfile", "")
	viper.SetDefault("mqtt.triggertopic", "cam1/esp")
	viper.SetDefault("mqtt.resulttopic", "cam1/esp/number")
	viper.SetDefault("mqtt.publishresults", true)
	viper.SetDefault("mqtt.qos", 0)
	viper.SetDefault("mqtt.queuesize", 8)

	viper.SetDefault("poll.url", "http://192.168.1.12/trigger")
	viper.SetDefault("poll.timeout", 2*time.Second)
	viper.SetDefault("poll.interval", 1*time.Second)
	viper.SetDefault("poll.backoff", 2*time.Second)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/lanewatch.log")
	viper.SetDefault("logging.file_output.level", "info")
}
